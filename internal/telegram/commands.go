package telegram

import (
	"errors"
	"strings"
	"unicode"
)

var errUnclosedQuote = errors.New("unclosed quote")

// command разобранная команда: имя без "/" и упоминания бота, аргументы.
type command struct {
	name string
	args []string
}

// parseCommand разбирает "/name@bot arg1 "arg with spaces" arg3".
func parseCommand(text string) (command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return command{}, nil
	}
	head, rest, _ := strings.Cut(text, " ")
	name, _, _ := strings.Cut(strings.TrimPrefix(head, "/"), "@")
	args, err := splitArgs(rest)
	return command{name: strings.ToLower(name), args: args}, err
}

// splitArgs делит строку по пробелам, учитывая двойные и «елочки» кавычки.
func splitArgs(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inToken bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '“' || r == '«':
			quote = closingQuote(r)
			inToken = true
		case unicode.IsSpace(r):
			if inToken {
				args = append(args, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, errUnclosedQuote
	}
	if inToken {
		args = append(args, current.String())
	}
	return args, nil
}

func closingQuote(open rune) rune {
	switch open {
	case '“':
		return '”'
	case '«':
		return '»'
	}
	return open
}
