package logger

import "sync"

// named holds loggers registered for a component, e.g. a test capturing the
// output of the "pool" logger. Components without an entry log through the
// global logger.
var named sync.Map // map[string]*Logger

// Register makes Get(name) return l until Unregister is called.
func Register(name string, l *Logger) { named.Store(name, l) }

// Unregister drops the logger registered under name.
func Unregister(name string) { named.Delete(name) }

// Get returns the logger for a component: the registered one, or the global
// logger tagged with FieldComponent. It is resolved at call time, so a
// component created before Init keeps the logger it was given.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
