package instruments

import (
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Session is a connected handle to one instrument. A session has a single
// owner: callers must serialize every call made against it.
type Session interface {
	// Write sends a command without reading a response.
	Write(cmd string) error

	// Query sends a command and returns the raw response text.
	Query(cmd string) (string, error)

	// Close releases the connection. Calling it twice is not an error.
	Close() error
}

// ResourceLister enumerates the instrument resources visible to a transport.
type ResourceLister interface {
	ListResources() ([]string, error)
}

var logger = log.New(io.Discard, "instruments: ", log.LstdFlags)

// SetLogger replaces the package logger. A nil logger silences logging.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	logger = l
}

// SelectResource returns the only resource whose name contains id.
func SelectResource(resources []string, id string) (string, error) {
	var matches []string
	for _, resource := range resources {
		if strings.Contains(resource, id) {
			matches = append(matches, resource)
		}
	}
	switch len(matches) {
	case 0:
		return "", errors.Wrapf(ErrNoResourceFound, "no resource matches \"%s\"", id)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(ErrAmbiguousResource, "resources matching \"%s\": %s",
			id, strings.Join(matches, ", "))
	}
}

// FindResource lists the resources visible to lister and selects the one
// matching id.
func FindResource(lister ResourceLister, id string) (string, error) {
	resources, err := lister.ListResources()
	if err != nil {
		return "", errors.Wrap(err, "resource listing failed")
	}
	return SelectResource(resources, id)
}

// firstLine returns the response up to the first newline.
func firstLine(response string) string {
	if i := strings.IndexByte(response, '\n'); i >= 0 {
		response = response[:i]
	}
	return strings.TrimRight(response, "\r")
}

func queryFloat(s Session, cmd string) (float64, error) {
	response, err := s.Query(cmd)
	if err != nil {
		return 0, errors.Wrapf(err, "query \"%s\" failed", cmd)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(firstLine(response)), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "conversion of \"%s\" response failed", cmd)
	}
	return value, nil
}

func queryString(s Session, cmd string) (string, error) {
	response, err := s.Query(cmd)
	if err != nil {
		return "", errors.Wrapf(err, "query \"%s\" failed", cmd)
	}
	return strings.TrimSpace(response), nil
}
