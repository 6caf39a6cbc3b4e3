package errors

import (
	"net/http"
	"sort"
	"strings"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
	Status   int
}

const docBase = "https://github.com/vango-dev/uiregistry/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Validation Errors (E001-E009)
	// ============================================

	"E001": {
		Category: CategoryValidation,
		Message:  "Invalid argument",
		Detail:   "A request parameter or command argument is out of range.",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Registry Errors (E010-E019)
	// ============================================

	"E010": {
		Category: CategoryRegistry,
		Message:  "Registry not found",
		Detail:   "The registry manifest (registry.json) could not be found in the configured source.",
		Status:   http.StatusNotFound,
	},
	"E011": {
		Category: CategoryRegistry,
		Message:  "Registry manifest invalid",
		Detail:   "registry.json exists but is not a valid registry manifest.",
		Status:   http.StatusInternalServerError,
	},
	"E012": {
		Category: CategoryRegistry,
		Message:  "Component not found",
		Detail:   "No registry item with this name exists in the manifest.",
		Status:   http.StatusNotFound,
	},
	"E013": {
		Category: CategoryRegistry,
		Message:  "File not found",
		Status:   http.StatusNotFound,
	},
	"E014": {
		Category: CategoryRegistry,
		Message:  "Invalid file path",
		Detail:   "File paths must stay inside the registry files directory.",
		Status:   http.StatusForbidden,
	},
	"E015": {
		Category: CategoryRegistry,
		Message:  "Registry read failed",
		Status:   http.StatusInternalServerError,
	},

	// ============================================
	// Remote Registry Errors (E020-E029)
	// ============================================

	"E020": {
		Category: CategoryRemote,
		Message:  "Remote registry unreachable",
		Detail:   "The registry server did not respond.",
		Status:   http.StatusBadGateway,
	},
	"E021": {
		Category: CategoryRemote,
		Message:  "Remote registry returned an error",
		Status:   http.StatusBadGateway,
	},
	"E022": {
		Category: CategoryRemote,
		Message:  "Local modifications detected",
		Detail:   "The installed file was edited after it was added. Use --force to overwrite it.",
		Status:   http.StatusConflict,
	},

	// ============================================
	// Database Errors (E030-E039)
	// ============================================

	"E030": {
		Category: CategoryDatabase,
		Message:  "Database open failed",
		Status:   http.StatusInternalServerError,
	},
	"E031": {
		Category: CategoryDatabase,
		Message:  "Migration failed",
		Status:   http.StatusInternalServerError,
	},
	"E032": {
		Category: CategoryDatabase,
		Message:  "Query failed",
		Status:   http.StatusInternalServerError,
	},
	"E033": {
		Category: CategoryDatabase,
		Message:  "Contact not found",
		Status:   http.StatusNotFound,
	},
	"E034": {
		Category: CategoryValidation,
		Message:  "Invalid contact",
		Status:   http.StatusBadRequest,
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be loaded or contains invalid values.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Port out of range",
		Detail:   "server.port must be between 1 and 65535.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Unsupported database driver",
		Detail:   "database.driver must be \"pgx\" or \"sqlite\".",
	},
}

func init() {
	for code, t := range registry {
		if t.DocURL == "" {
			t.DocURL = docBase + strings.ToLower(code)
			registry[code] = t
		}
	}
}

// GetAllCodes returns all registered error codes in ascending order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
