package media

import (
	"fmt"
	"strings"
)

const (
	stylesHeader = "[V4+ Styles]"
	eventsHeader = "[Events]"
)

// ReplaceStyleSection swaps the [V4+ Styles] section of an ASS
// document for the supplied one, preserving the script info before it
// and the [Events] section after it byte for byte. A document missing
// either section is corrupt and rejected outright.
func ReplaceStyleSection(assContent, styleSection string) (string, error) {
	stylesIdx := strings.Index(assContent, stylesHeader)
	if stylesIdx < 0 {
		return "", fmt.Errorf("ass document has no %s section", stylesHeader)
	}

	eventsIdx := strings.Index(assContent, eventsHeader)
	if eventsIdx < 0 {
		return "", fmt.Errorf("ass document has no %s section", eventsHeader)
	}
	if eventsIdx < stylesIdx {
		return "", fmt.Errorf("ass document has %s before %s", eventsHeader, stylesHeader)
	}

	section := styleSection
	if !strings.HasSuffix(section, "\n") {
		section += "\n"
	}

	var b strings.Builder
	b.WriteString(assContent[:stylesIdx])
	b.WriteString(section)
	b.WriteString("\n")
	b.WriteString(assContent[eventsIdx:])
	return b.String(), nil
}
