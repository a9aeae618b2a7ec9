package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractODT extracts text from OpenDocument and RTF bytes.
func extractODT(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract ODT/RTF: %w", err)
	}
	return text, nil
}
