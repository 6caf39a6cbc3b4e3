// Package registry serves and installs UI registry items.
//
// A registry is a registry.json manifest next to a registry/ directory that
// holds the source files of each item. Sources may be a local directory, any
// fs.FS, or an S3 bucket.
//
// # Registry Manifest
//
//	{
//	  "name": "acme",
//	  "homepage": "https://ui.acme.dev",
//	  "items": [
//	    {
//	      "name": "data-table",
//	      "type": "registry:block",
//	      "title": "Data Table",
//	      "files": [
//	        {"path": "registry/blocks/data-table/table.tsx", "type": "registry:component"}
//	      ],
//	      "registryDependencies": ["button"]
//	    }
//	  ]
//	}
//
// # Installed File Headers
//
// Client.Install records where a file came from and what it contained:
//
//	// Source: http://localhost:8080/api/registry/button
//	// Checksum: sha256:9f86d08188...
//
// A later install compares the body against the checksum and leaves files
// that were edited locally alone.
//
// # Usage
//
//	reg := registry.New(registry.NewDirSource("./ui"))
//	item, err := reg.Item(ctx, "data-table")
//
//	client := registry.NewClient("http://localhost:8080")
//	files, err := client.Install(ctx, []string{"data-table"}, registry.InstallOptions{Dir: "."})
package registry
