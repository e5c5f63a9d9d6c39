// Package validation содержит проверки пользовательского ввода.
package validation

import "regexp"

var destinationRe = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

// ValidDestination проверяет формат платёжного адреса для вывода средств:
// идентификатор и код провайдера, разделённые символом @.
func ValidDestination(destination string) bool {
	return destinationRe.MatchString(destination)
}
