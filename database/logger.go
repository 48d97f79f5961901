package database

import (
	"fmt"
	"io"
)

// Logger receives the progress messages shown to the user.
type Logger interface {
	Print(v ...any)
	Printf(format string, v ...any)
	Println(v ...any)
}

type StdoutLogger struct{}

func (s StdoutLogger) Print(v ...any) {
	fmt.Print(v...)
}

func (s StdoutLogger) Printf(format string, v ...any) {
	fmt.Printf(format, v...)
}

func (s StdoutLogger) Println(v ...any) {
	fmt.Println(v...)
}

// WriterLogger prints to an arbitrary writer.
type WriterLogger struct {
	W io.Writer
}

func (l WriterLogger) Print(v ...any) {
	fmt.Fprint(l.W, v...)
}

func (l WriterLogger) Printf(format string, v ...any) {
	fmt.Fprintf(l.W, format, v...)
}

func (l WriterLogger) Println(v ...any) {
	fmt.Fprintln(l.W, v...)
}

type NullLogger struct{}

func (n NullLogger) Print(v ...any)                 {}
func (n NullLogger) Printf(format string, v ...any) {}
func (n NullLogger) Println(v ...any)               {}
