package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Structural Errors (E001-E039)
	// ============================================

	"E001": {
		Category: CategoryStructural,
		Message:  "Mixed keyed and unkeyed siblings",
		Detail:   "Within one children list either every element and component carries a key or none does. Mixing them makes identity across renders ambiguous.",
	},
	"E002": {
		Category: CategoryStructural,
		Message:  "Component definition has no draw hook",
		Detail:   "Every component definition must provide Draw. Init, Drawn, Remove, Destroy and Tick are optional.",
	},
	"E003": {
		Category: CategoryStructural,
		Message:  "Container overlaps an existing mount",
		Detail:   "A container cannot be mounted inside, or around, a container that is already mounted. Two roots would own the same DOM subtree.",
	},
	"E004": {
		Category: CategoryStructural,
		Message:  "Remove hook returned a non-awaitable value",
		Detail:   "A Remove hook must return nil for immediate removal, or a Completion, <-chan error or <-chan struct{} to defer teardown.",
	},
	"E005": {
		Category: CategoryStructural,
		Message:  "Unrecognized attribute value",
		Detail:   "Attribute values must be a string, a number, a bool, a handler func (on* names only), a []string class list, a Style map, or nil.",
	},
	"E006": {
		Category: CategoryStructural,
		Message:  "Duplicate key in children list",
		Detail:   "Keys must be unique among siblings. Two siblings with the same key cannot both be matched on the next render.",
	},
	"E007": {
		Category: CategoryStructural,
		Message:  "Unsupported child value",
		Detail:   "Children may be nodes, strings, numbers, bools, nil, or slices of those.",
	},

	// ============================================
	// Runtime Errors (E040-E059)
	// ============================================

	"E040": {
		Category: CategoryRuntime,
		Message:  "Unknown node kind",
		Detail:   "The engine met a node kind it has no operation for.",
	},
	"E041": {
		Category: CategoryRuntime,
		Message:  "Container is not mounted",
		Detail:   "Redraw and Invalidate need a container previously passed to Mount.",
	},
	"E042": {
		Category: CategoryRuntime,
		Message:  "Render pass already running",
		Detail:   "A render was started from inside another render. Use Invalidate from hooks to schedule a redraw for the next frame.",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "WebSocket connection failed",
		Detail:   "Unable to establish WebSocket connection to the server.",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Invalid message format",
		Detail:   "The received message could not be decoded. The protocol version may be mismatched.",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Unknown node id",
		Detail:   "An event referenced a node id that is not in the remote document.",
	},

	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid livedom.json",
		Detail:   "The configuration file contains invalid JSON or unknown fields.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field has a value outside its allowed range.",
	},

	"E102": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No livedom.json was found in the directory or any of its parents.",
	},

	// ============================================
	// CLI Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryCLI,
		Message:  "Cannot read description file",
		Detail:   "The description file could not be read or parsed.",
	},
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
