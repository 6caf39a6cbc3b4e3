package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiregistry/internal/config"
	"github.com/vango-dev/uiregistry/internal/registry"
	"github.com/vango-dev/uiregistry/pkg/filetree"
)

// newClient returns a client for the configured remote registry.
func newClient(cmd *cobra.Command) (*registry.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return registry.NewClient(cfg.Registry.Remote, registry.WithClientLogger(logger.Logger)), cfg, nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registry components",
		Long:  `List every component in the remote registry with its type and dependencies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			manifest, err := client.FetchManifest(ctx)
			if err != nil {
				return err
			}

			items := append([]registry.Item(nil), manifest.Items...)
			sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

			fmt.Printf("  %s (%d components)\n\n", manifest.Name, len(items))
			for _, item := range items {
				deps := ""
				if len(item.RegistryDependencies) > 0 {
					deps = fmt.Sprintf(" (requires: %s)", strings.Join(item.RegistryDependencies, ", "))
				}
				fmt.Printf("    %-24s %-16s%s\n", item.Name, strings.TrimPrefix(item.Type, "registry:"), deps)
			}
			fmt.Println()
			return nil
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <component>",
		Short: "Show a component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			item, err := client.FetchItem(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("  %s\n", item.Title)
			if item.Description != "" {
				fmt.Printf("  %s\n", item.Description)
			}
			fmt.Println()
			fmt.Printf("  Name:     %s\n", item.Name)
			fmt.Printf("  Type:     %s\n", item.Type)
			if len(item.Dependencies) > 0 {
				fmt.Printf("  Packages: %s\n", strings.Join(item.Dependencies, ", "))
			}
			if len(item.RegistryDependencies) > 0 {
				fmt.Printf("  Requires: %s\n", strings.Join(item.RegistryDependencies, ", "))
			}
			fmt.Println()
			fmt.Println("  Files:")
			for _, f := range item.Files {
				fmt.Printf("    %s → %s\n", f.Path, f.Destination())
			}
			fmt.Println()
			return nil
		},
	}
}

func treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <component>",
		Short: "Print the file tree of a component",
		Long: `Print the files of a component as a tree, folders first, the way the
registry explorer shows them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			item, err := client.FetchItem(ctx, args[0])
			if err != nil {
				return err
			}
			root := filetree.Build(item.Paths(), filetree.WithPrefix(cfg.Registry.Prefix))
			fmt.Println(item.Name)
			return filetree.Render(os.Stdout, root)
		},
	}
}

func addCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "add <component>...",
		Short: "Add components to a project",
		Long: `Add registry components and their registry dependencies to a project.

Components are copied as source code that you own. Every file starts with a
header recording its source and checksum; files you have edited since are
left alone unless --force is given.

Examples:
  uiregistry add button
  uiregistry add data-table --dir ./web
  uiregistry add button --force`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			info("Installing from %s...", client.BaseURL())
			fmt.Println()

			files, err := client.Install(ctx, args, registry.InstallOptions{Dir: dir, Force: force})
			for _, f := range files {
				switch f.Status {
				case registry.StatusCreated:
					success("Created %s", f.Path)
				case registry.StatusUpdated:
					success("Updated %s", f.Path)
				case registry.StatusUnchanged:
					info("%s is up to date", f.Path)
				case registry.StatusSkipped:
					warn("Skipped %s: local modifications (use --force to overwrite)", f.Path)
				}
			}
			if err != nil {
				return err
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Project directory to install into")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite files with local modifications")

	return cmd
}
