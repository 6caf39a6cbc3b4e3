// Package errors provides structured, actionable errors for the registry
// server and CLI.
//
// Every error carries a code from a fixed registry. The code determines the
// category, a default message, the HTTP status the server answers with and a
// documentation link:
//
//   - E001-E009: validation errors (bad arguments)
//   - E010-E019: registry errors (manifest, components, files)
//   - E020-E029: remote registry errors (the companion client)
//   - E030-E039: database errors (contacts store)
//   - E120-E139: configuration errors
//
// # Usage
//
//	err := errors.New("E012").
//	    WithResource("data-table").
//	    WithSuggestion("Run `uiregistry list` to see available components")
//
//	errors.HTTPStatus(err) // 404
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E012: Component not found
//	//
//	//   data-table
//	//
//	//   No registry item with this name exists in the manifest.
//	//
//	//   Hint: Run `uiregistry list` to see available components
//	//
//	//   Learn more: https://github.com/vango-dev/uiregistry/blob/main/docs/errors.md#e012
//
// Codes compare with errors.Is, so callers can test for a condition without
// holding the original value:
//
//	if errors.Is(err, apperrors.New("E013")) { ... }
package errors
