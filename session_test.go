package instruments

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

var errLinkDown = errors.New("link down")

// fakeSession records writes and answers queries from a table.
type fakeSession struct {
	writes    []string
	queries   []string
	responses map[string]string
	// writes beyond this count fail; zero means never
	failAfter  int
	failWrites bool
	closed     int
}

func newFakeSession(responses map[string]string) *fakeSession {
	if responses == nil {
		responses = map[string]string{}
	}
	return &fakeSession{responses: responses}
}

func (f *fakeSession) Write(cmd string) error {
	if f.failWrites || (f.failAfter > 0 && len(f.writes) >= f.failAfter) {
		return errLinkDown
	}
	f.writes = append(f.writes, cmd)
	// a channel switch changes what :INST? reports
	if strings.HasPrefix(cmd, ":INST:NSEL ") {
		f.responses[":INST?"] = "CH" + strings.TrimPrefix(cmd, ":INST:NSEL ") + "\n"
	}
	return nil
}

func (f *fakeSession) Query(cmd string) (string, error) {
	f.queries = append(f.queries, cmd)
	response, ok := f.responses[cmd]
	if !ok {
		return "", fmt.Errorf("unexpected query %q", cmd)
	}
	return response, nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

// sleepRecorder replaces time.Sleep in tests.
type sleepRecorder struct {
	slept []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.slept = append(r.slept, d)
}

type fakeLister struct {
	resources []string
	err       error
}

func (l fakeLister) ListResources() ([]string, error) {
	return l.resources, l.err
}

func TestSelectResource(t *testing.T) {
	resources := []string{
		"USB0::0x1AB1::0x0E11::DL3A204800938::INSTR",
		"USB0::0x1AB1::0x0E11::DP8C180200071::INSTR",
		"TCPIP0::192.168.1.50::INSTR",
	}

	got, err := SelectResource(resources, DL3000ResourceID)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != resources[0] {
		t.Errorf("got %q, want %q", got, resources[0])
	}

	_, err = SelectResource(resources, "DG4")
	if !errors.Is(err, ErrNoResourceFound) {
		t.Errorf("no match: got %v, want ErrNoResourceFound", err)
	}

	_, err = SelectResource(resources, "USB0")
	if !errors.Is(err, ErrAmbiguousResource) {
		t.Errorf("two matches: got %v, want ErrAmbiguousResource", err)
	}
	if err != nil && !strings.Contains(err.Error(), "DP8C180200071") {
		t.Errorf("ambiguity error should name the candidates: %s", err)
	}

	_, err = SelectResource(nil, DP800ResourceID)
	if !errors.Is(err, ErrNoResourceFound) {
		t.Errorf("empty bus: got %v, want ErrNoResourceFound", err)
	}
}

func TestFindResource(t *testing.T) {
	lister := fakeLister{resources: []string{"USB0::0x1AB1::0x0E11::DP8C180200071::INSTR"}}
	got, err := FindResource(lister, DP800ResourceID)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != lister.resources[0] {
		t.Errorf("got %q", got)
	}

	_, err = FindResource(fakeLister{err: errLinkDown}, DP800ResourceID)
	if errors.Cause(err) != errLinkDown {
		t.Errorf("listing failure not propagated: %v", err)
	}
}

func TestFirstLine(t *testing.T) {
	cases := map[string]string{
		"12.5\n":      "12.5",
		"12.5\r\n":    "12.5",
		"CH2\nrest\n": "CH2",
		"1":           "1",
		"":            "",
	}
	for in, want := range cases {
		if got := firstLine(in); got != want {
			t.Errorf("firstLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestQueryFloatMalformed(t *testing.T) {
	s := newFakeSession(map[string]string{":MEAS:VOLT?": "OVLD\n"})
	if _, err := queryFloat(s, ":MEAS:VOLT?"); err == nil {
		t.Error("expected a conversion error")
	}
}
