// Package logger configures logrus and implements a formatter that prefixes
// log messages with the component that logged them.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ComponentFormatter is a logrus formatter that moves the 'component' field,
// and the 'kind' field if present, into a message prefix for nicer formatted
// text output.
type ComponentFormatter struct {
	Parent logrus.Formatter
}

// Format implements logrus.Formatter
func (f *ComponentFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	component, ok := entry.Data["component"].(string)
	if !ok {
		return f.Parent.Format(entry)
	}
	prefix := component
	if kind, ok := entry.Data["kind"].(string); ok {
		prefix += "/" + kind
	}

	// Do not modify the entry, other hooks may still see it
	e := entry.Dup()
	e.Level = entry.Level
	e.Message = fmt.Sprintf("[%-12s] %s", prefix, entry.Message)
	delete(e.Data, "component")
	delete(e.Data, "kind")
	return f.Parent.Format(e)
}
