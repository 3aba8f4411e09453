package taskid

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes for the colon-delimited task identifier grammar:
//
//	id = [ "!:" ] "F" ":" int ":S" int ":" int ":U" int
//	     [ ":P" int ":" int ] [ ":C" int ] [ ":W" int ] [ ":R" int ]
const (
	bangCode = iota
	colonCode
	letterFCode
	letterSCode
	letterUCode
	letterPCode
	letterCCode
	letterWCode
	letterRCode
	digitsCode
)

var (
	bangToken    = parsly.NewToken(bangCode, "!", matcher.NewByte('!'))
	colonToken   = parsly.NewToken(colonCode, ":", matcher.NewByte(':'))
	letterFToken = parsly.NewToken(letterFCode, "F", matcher.NewByte('F'))
	letterSToken = parsly.NewToken(letterSCode, "S", matcher.NewByte('S'))
	letterUToken = parsly.NewToken(letterUCode, "U", matcher.NewByte('U'))
	letterPToken = parsly.NewToken(letterPCode, "P", matcher.NewByte('P'))
	letterCToken = parsly.NewToken(letterCCode, "C", matcher.NewByte('C'))
	letterWToken = parsly.NewToken(letterWCode, "W", matcher.NewByte('W'))
	letterRToken = parsly.NewToken(letterRCode, "R", matcher.NewByte('R'))
	digitsToken  = parsly.NewToken(digitsCode, "Digits", newDigitsMatcher())
)

// digitsMatcher matches one or more ASCII digits — every numeric segment of
// the task identifier grammar (client task id, server id, universe/space
// serials, computer/worker ids, redispatch counter).
type digitsMatcher struct{}

func newDigitsMatcher() parsly.Matcher {
	return &digitsMatcher{}
}

func (m *digitsMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] < '0' || input[i] > '9' {
			break
		}
		matched++
	}
	return matched
}
