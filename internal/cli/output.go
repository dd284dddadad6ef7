package cli

import (
	"encoding/json"
	"fmt"
	"os"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Member:
		o.printMember(v)
	case []Member:
		for _, m := range v {
			o.printMember(m)
		}
	case Account:
		fmt.Printf("Account %d: %s\n", v.UserID, v.Username)
	case AuthResult:
		fmt.Printf("Logged in as %s (user %d)\n", v.Account.Username, v.Account.UserID)
	case Lesson:
		o.printLesson(v)
	case []Lesson:
		for _, l := range v {
			o.printLesson(l)
		}
	case RoomsResult:
		for _, room := range v.Rooms {
			fmt.Println(room)
		}
	case ConfigResult:
		fmt.Println(v.Data)
	case HealthResult:
		fmt.Printf("Server status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printMember(m Member) {
	kind := "anonymous"
	if m.IsAuth {
		kind = "account"
	}
	fmt.Printf("%d\t%s\t(%s)\n", m.UserID, m.Name, kind)
}

func (o *Output) printLesson(l Lesson) {
	fmt.Printf("user %d\tsem %d\t%s\t%s %s\n", l.UserID, l.Semester, l.ModuleCode, l.LessonType, l.ClassNo)
}
