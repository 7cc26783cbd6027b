package core

// Logger is implemented by the logging services.
// args may hold errors, map[string]interface{} extras or the request's Claims owner.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies who triggered a logged event.
type Person struct {
	ID       string
	Username string
	Email    string
}
