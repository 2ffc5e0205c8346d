package expr

// Env binds variable names to values and function names to implementations
// for one evaluation.
type Env struct {
	vars  map[string]Value
	funcs map[string]Func
}

// NewEnv returns an environment preloaded with fns, typically StdFuncs.
func NewEnv(fns map[string]Func) *Env {
	e := &Env{
		vars:  make(map[string]Value),
		funcs: make(map[string]Func, len(fns)),
	}
	for name, fn := range fns {
		e.funcs[name] = fn
	}
	return e
}

// Bind sets variable name to v, replacing any previous binding.
func (e *Env) Bind(name string, v Value) {
	e.vars[name] = v
}

// BindFunc exposes fn to formulas under name.
func (e *Env) BindFunc(name string, fn Func) {
	e.funcs[name] = fn
}

// Var looks up a variable binding.
func (e *Env) Var(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Func looks up a function binding.
func (e *Env) Func(name string) (Func, bool) {
	fn, ok := e.funcs[name]
	return fn, ok
}
