// Package errors provides the structured errors printed by the spool
// command.
//
// Each error has a registered code (e.g., "E111") that maps to a short
// message, a category and a longer explanation:
//
//	err := errors.New(errors.CodeDocumentInvalid).
//	    WithLocationFromError("site/index.yaml", yamlErr).
//	    WithSuggestion("Indent body items with two spaces")
//
//	errors.Print(os.Stderr, err)
//	// Output:
//	// ERROR E111: Invalid document
//	//
//	//   site/index.yaml:4
//	//
//	//        2 │ body:
//	//        3 │   - h1: Hello
//	//   →    4 │  - p: text
//	//        5 │
//	//
//	//   Documents are YAML files with a body list, or Markdown files.
//	//
//	//   Hint: Indent body items with two spaces
package errors
