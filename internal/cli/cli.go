package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/buger/goterm"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// HistoryFile of the prompt.
const HistoryFile = "/tmp/polychat.history"

var (
	userInputColor   = color.New(color.FgWhite)
	userCommandColor = color.New(color.FgGreen)
	aiOutputColor    = color.New(color.FgCyan)
	titleColor       = color.New(color.FgMagenta, color.Bold)
	separatorColor   = color.New(color.FgHiBlack)
	fileColor        = color.New(color.FgRed)
	errorColor       = color.New(color.FgRed, color.Bold)
	infoColor        = color.New(color.FgYellow)
	promptColor      = color.New(color.FgHiBlue)

	width = goterm.Width()
)

// Width of the terminal, with a fallback when it cannot be detected.
func Width() int {
	if width <= 0 {
		return 80
	}
	return width
}

// Separator printed to cli.
func Separator() {
	separatorColor.Println(strings.Repeat("-", Width()))
}

// Title printed to cli.
func Title(text string, args ...any) {
	title := "      " + fmt.Sprintf(text, args...) + "      "
	leftWidth := max((Width()-len(title))/2, 0)
	separator1 := strings.Repeat("-", leftWidth)
	separator2 := strings.Repeat("-", max(Width()-len(title)-len(separator1), 0))
	titleColor.Println(separator1 + title + separator2)
}

// UserInput printed to cli.
func UserInput(text string, args ...any) {
	userInputColor.Printf(text, args...)
}

// UserCommand printed to cli.
func UserCommand(text string, args ...any) {
	if len(args) == 0 {
		userCommandColor.Print(text)
		return
	}
	userCommandColor.Printf(text, args...)
}

// AIOutput printed to cli.
func AIOutput(text string, args ...any) {
	if len(args) == 0 {
		aiOutputColor.Print(text)
		return
	}
	aiOutputColor.Printf(text, args...)
}

// FileInfo printed to cli.
func FileInfo(text string, args ...any) {
	fileColor.Printf(text, args...)
}

// Info printed to cli.
func Info(text string, args ...any) {
	infoColor.Printf(text, args...)
}

// Error printed to cli.
func Error(err error) {
	errorColor.Printf("error: %v\n", err)
}

// Prompt reads user input with line editing and history.
type Prompt struct {
	rl *readline.Instance
}

// NewPrompt instantiates a prompt.
func NewPrompt() (*Prompt, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "/quit",
		HistoryFile:       HistoryFile,
		HistorySearchFold: true,
	})
	if err != nil {
		return nil, err
	}
	return &Prompt{rl: rl}, nil
}

// Read the next input. A line ending with a backslash continues on the next line.
// Returns io.EOF when the user is done.
func (p *Prompt) Read() (string, error) {
	defer p.rl.SetPrompt(promptColor.Sprint("> "))
	var lines []string
	for {
		line, err := p.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(lines) == 0 && line == "" {
				return "", io.EOF
			}
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if !strings.HasSuffix(line, "\\") {
			lines = append(lines, line)
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, strings.TrimSuffix(line, "\\"))
		p.rl.SetPrompt(promptColor.Sprint(". "))
	}
}

// Close the prompt.
func (p *Prompt) Close() error {
	return p.rl.Close()
}

// QueryUser a yes/no question.
func QueryUser(question string) bool {
	surveyQuestion := &survey.Confirm{
		Message: question,
	}
	confirm := false
	survey.AskOne(surveyQuestion, &confirm)
	return confirm
}

// SelectOption among the given options.
func SelectOption(message string, options []string, defaultOption string) (string, error) {
	question := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultOption,
	}
	var answer string
	if err := survey.AskOne(question, &answer); err != nil {
		return "", err
	}
	return answer, nil
}
