package models

import (
	"encoding/json"
	"strings"
)

// ExecutionContext is the accumulating key-value state threaded through
// a run. It is structured into namespaces but stays fully JSON
// serializable because it may cross the sync/async boundary inside a
// queued job. Blocks extend it, they never replace it wholesale.
type ExecutionContext struct {
	RunID   string         `json:"run_id"`
	AppID   string         `json:"app_id"`
	UserID  string         `json:"user_id"`
	Trigger map[string]any `json:"trigger,omitempty"`
	Form    map[string]any `json:"form,omitempty"`
	Auth    map[string]any `json:"auth,omitempty"`
	HTTP    map[string]any `json:"http,omitempty"`
	DB      map[string]any `json:"db,omitempty"`
	Steps   map[string]any `json:"steps,omitempty"`
	Custom  map[string]any `json:"custom,omitempty"`
}

// NewExecutionContext creates an empty context for a run.
func NewExecutionContext(runID, appID, userID string) *ExecutionContext {
	return &ExecutionContext{
		RunID:   runID,
		AppID:   appID,
		UserID:  userID,
		Trigger: make(map[string]any),
		Form:    make(map[string]any),
		Auth:    make(map[string]any),
		HTTP:    make(map[string]any),
		DB:      make(map[string]any),
		Steps:   make(map[string]any),
		Custom:  make(map[string]any),
	}
}

// EnsureMaps allocates any nil namespace map. Empty namespaces are
// dropped on the wire by omitempty, so a context that crossed the job
// queue comes back with nil maps until this runs.
func (c *ExecutionContext) EnsureMaps() {
	for _, ref := range c.namespaceRefs() {
		if *ref == nil {
			*ref = make(map[string]any)
		}
	}
}

func (c *ExecutionContext) namespaceRefs() []*map[string]any {
	return []*map[string]any{&c.Trigger, &c.Form, &c.Auth, &c.HTTP, &c.DB, &c.Steps, &c.Custom}
}

// UnmarshalJSON decodes the context and re-allocates the namespace maps
// the encoder dropped, keeping every namespace writable after a
// sync/async hop.
func (c *ExecutionContext) UnmarshalJSON(data []byte) error {
	type alias ExecutionContext

	decoded := (*alias)(c)
	if err := json.Unmarshal(data, decoded); err != nil {
		return err
	}

	c.EnsureMaps()

	return nil
}

func (c *ExecutionContext) namespace(name string) (map[string]any, bool) {
	switch name {
	case "trigger":
		return c.Trigger, true
	case "form":
		return c.Form, true
	case "auth":
		return c.Auth, true
	case "http":
		return c.HTTP, true
	case "db":
		return c.DB, true
	case "steps":
		return c.Steps, true
	case "custom":
		return c.Custom, true
	default:
		return nil, false
	}
}

func (c *ExecutionContext) namespaceRef(name string) *map[string]any {
	switch name {
	case "trigger":
		return &c.Trigger
	case "form":
		return &c.Form
	case "auth":
		return &c.Auth
	case "http":
		return &c.HTTP
	case "db":
		return &c.DB
	case "steps":
		return &c.Steps
	case "custom":
		return &c.Custom
	default:
		return nil
	}
}

// Lookup resolves a dotted path ("form.email", "auth.user.id") against
// the context. A path whose first segment is not a namespace is looked
// up under custom, keeping backward compatibility with flat contexts.
func (c *ExecutionContext) Lookup(path string) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	switch segments[0] {
	case "run_id":
		return c.RunID, true
	case "app_id":
		return c.AppID, true
	case "user_id":
		return c.UserID, true
	}

	current, ok := c.namespace(segments[0])
	if ok {
		segments = segments[1:]
		if len(segments) == 0 {
			return current, true
		}
	} else {
		current = c.Custom
	}

	return lookupPath(current, segments)
}

func lookupPath(m map[string]any, segments []string) (any, bool) {
	var value any = m

	for _, segment := range segments {
		asMap, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}

		value, ok = asMap[segment]
		if !ok {
			return nil, false
		}
	}

	return value, true
}

// Set writes a value into a namespace, allocating the map when needed.
// Unknown namespaces land under custom, named namespaces never leak
// there.
func (c *ExecutionContext) Set(namespace, key string, value any) {
	ref := c.namespaceRef(namespace)
	if ref == nil {
		ref = &c.Custom
	}

	if *ref == nil {
		*ref = make(map[string]any)
	}

	(*ref)[key] = value
}

// MergeInto merges src into dst without removing existing keys. Nested
// maps merge recursively, scalar conflicts prefer src.
func MergeInto(dst, src map[string]any) {
	for key, value := range src {
		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)

		if srcIsMap && dstIsMap {
			MergeInto(dstMap, srcMap)

			continue
		}

		dst[key] = value
	}
}

// Extend merges every namespace of other into the receiver.
func (c *ExecutionContext) Extend(other *ExecutionContext) {
	if other == nil {
		return
	}

	c.EnsureMaps()

	MergeInto(c.Trigger, other.Trigger)
	MergeInto(c.Form, other.Form)
	MergeInto(c.Auth, other.Auth)
	MergeInto(c.HTTP, other.HTTP)
	MergeInto(c.DB, other.DB)
	MergeInto(c.Steps, other.Steps)
	MergeInto(c.Custom, other.Custom)
}
