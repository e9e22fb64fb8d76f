package proto

// HandlerFunc processes a dispatched command against the simulation state the
// caller registered it with. The registry never retains cmd past the call.
type HandlerFunc func(state any, cmd *Command)

type registryKey struct {
	category Category
	typ      uint16
}

// Registry maps (category, type) pairs to handlers and dispatches
// synchronously. There is no wildcard matching and no handler chaining;
// unmatched commands are ignored and reported through the return value.
type Registry struct {
	handlers map[registryKey]HandlerFunc
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[registryKey]HandlerFunc)}
}

// Register binds a handler to the exact (category, type) key. Registering the
// same key again replaces the previous handler.
func (r *Registry) Register(category Category, typ uint16, fn HandlerFunc) {
	if r == nil || fn == nil {
		return
	}
	r.handlers[registryKey{category: category, typ: typ}] = fn
}

// Dispatch invokes the handler for cmd, if one exists, and reports whether a
// handler was found.
func (r *Registry) Dispatch(state any, cmd *Command) bool {
	if r == nil || cmd == nil {
		return false
	}
	fn, ok := r.handlers[registryKey{category: cmd.Category, typ: cmd.Type}]
	if !ok {
		return false
	}
	fn(state, cmd)
	return true
}

// Len reports the number of registered handlers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.handlers)
}
