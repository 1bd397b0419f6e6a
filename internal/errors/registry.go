package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// Error codes reported by the spool command.
const (
	CodeConfigInvalid    = "E101"
	CodeConfigParse      = "E102"
	CodeDocumentNotFound = "E110"
	CodeDocumentInvalid  = "E111"
	CodeRenderFailed     = "E120"
	CodeStoreUnavailable = "E130"
	CodePublishFailed    = "E140"
	CodeServerFailed     = "E150"
	CodeUnknownCommand   = "E160"
	CodeInvalidFlag      = "E161"
)

// registry maps error codes to their templates.
var registry = map[string]Template{
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A value in spool.json is out of range or refers to an unknown option.",
	},
	CodeConfigParse: {
		Category: CategoryConfig,
		Message:  "Configuration file could not be parsed",
		Detail:   "spool.json must be a valid JSON object.",
	},
	CodeDocumentNotFound: {
		Category: CategoryDocument,
		Message:  "Document not found",
		Detail:   "The document path does not exist or is not readable.",
	},
	CodeDocumentInvalid: {
		Category: CategoryDocument,
		Message:  "Invalid document",
		Detail:   "Documents are YAML files with a body list, or Markdown files.",
	},
	CodeRenderFailed: {
		Category: CategoryRender,
		Message:  "Render failed",
		Detail:   "A deferred value was rejected, a producer failed, or a value has no text form. Nothing was written.",
	},
	CodeStoreUnavailable: {
		Category: CategoryStore,
		Message:  "State store unavailable",
		Detail:   "The configured state store could not be opened or reached.",
	},
	CodePublishFailed: {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "The rendered page could not be written to its destination.",
	},
	CodeServerFailed: {
		Category: CategoryServer,
		Message:  "Server stopped unexpectedly",
		Detail:   "The live server failed to listen or exited with an error.",
	},
	CodeUnknownCommand: {
		Category: CategoryCLI,
		Message:  "Unknown command",
	},
	CodeInvalidFlag: {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
}

// Codes returns all registered error codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
