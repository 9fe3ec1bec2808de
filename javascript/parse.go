package javascript

import (
	"bufio"
	"strings"
)

// Name returns the declared name of the script's function or "anonymous"
func (s Script) Name() string {
	scanner := bufio.NewScanner(strings.NewReader(string(s)))
	scanner.Split(bufio.ScanWords)
	isNext := false
	for scanner.Scan() {
		word := scanner.Text()
		if strings.HasPrefix(word, "function") {
			rest := strings.TrimPrefix(word, "function")
			if strings.HasPrefix(rest, "(") {
				return "anonymous"
			}
			if rest == "" {
				isNext = true
				continue
			}
		}
		if isNext {
			before, _, _ := strings.Cut(word, "(")
			if before = strings.TrimSpace(before); before != "" {
				return before
			}
			return "anonymous"
		}
	}
	return "anonymous"
}
