package core

// Logger is any service that can report application logs.
// args may hold errors, extra data maps and the Person on whose behalf the work was done.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated student in logs.
type Person struct {
	ID       string
	Username string
	Email    string
}
