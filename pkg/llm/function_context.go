package llm

// ParameterInfo describes a single function parameter.
type ParameterInfo struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"-"`
}

// FunctionInfo declares one callable function exposed to the model.
type FunctionInfo struct {
	Name        string
	Description string
	Parameters  map[string]ParameterInfo
}

// FunctionContext holds the functions available during one completion.
type FunctionContext struct {
	functions map[string]FunctionInfo
}

// NewFunctionContext creates an empty function context.
func NewFunctionContext() *FunctionContext {
	return &FunctionContext{functions: make(map[string]FunctionInfo)}
}

// Register adds or replaces a function declaration.
func (f *FunctionContext) Register(info FunctionInfo) {
	if f.functions == nil {
		f.functions = make(map[string]FunctionInfo)
	}
	f.functions[info.Name] = info
}

// Get returns the declaration for name.
func (f *FunctionContext) Get(name string) (FunctionInfo, bool) {
	info, ok := f.functions[name]
	return info, ok
}

// Functions returns all registered declarations.
func (f *FunctionContext) Functions() map[string]FunctionInfo {
	return f.functions
}

// Len returns the number of registered functions.
func (f *FunctionContext) Len() int {
	if f == nil {
		return 0
	}
	return len(f.functions)
}

// FunctionCallInfo is a completed tool invocation reassembled from a
// stream: the call id, function name, and the full JSON-encoded arguments.
type FunctionCallInfo struct {
	CallID       string `json:"call_id"`
	FunctionName string `json:"function_name"`
	RawArguments string `json:"arguments"`
}
