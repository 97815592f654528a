package serviceclient

import (
	"fmt"
	"strings"
)

// ParseFileURL extracts the file {id} component from a Service asset URL
// of the shape ".../file/{id}/{version}/{subresource}" or ".../file/{id}".
func ParseFileURL(rawURL string) (string, error) {
	idx := strings.Index(rawURL, "/file/")
	if idx < 0 {
		return "", fmt.Errorf("serviceclient: %q does not contain a /file/ segment", rawURL)
	}
	rest := rawURL[idx+len("/file/"):]
	if rest == "" {
		return "", fmt.Errorf("serviceclient: %q has no file id", rawURL)
	}
	segments := strings.Split(rest, "/")
	id := segments[0]
	if id == "" {
		return "", fmt.Errorf("serviceclient: %q has an empty file id", rawURL)
	}
	return id, nil
}
