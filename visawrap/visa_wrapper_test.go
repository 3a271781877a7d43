package visawrap

import (
	"os"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/jpoirier/visa"

	"github.com/Electronic-Yoda/instruments"
)

func TestParseIdentity(t *testing.T) {
	info := parseIdentity("RIGOL TECHNOLOGIES,DL3021,DL3A204800938,00.01.02.00.01")
	want := map[string]string{
		"Manufacturer": "RIGOL TECHNOLOGIES",
		"Model":        "DL3021",
		"Serial":       "DL3A204800938",
		"Version":      "00.01.02.00.01",
	}
	for k, v := range want {
		if info[k] != v {
			t.Errorf("%s = %q, want %q", k, info[k], v)
		}
	}

	short := parseIdentity("RIGOL TECHNOLOGIES")
	if short["Model"] != "" || short["Manufacturer"] != "RIGOL TECHNOLOGIES" {
		t.Errorf("short identity parsed as %v", short)
	}
}

func TestParseErrorResponse(t *testing.T) {
	if err := parseErrorResponse(`0,"No error"`); err != nil {
		t.Errorf("no error reported as %s", err)
	}
	err := parseErrorResponse(`-113,"Undefined header"`)
	if err == nil || err.Error() != "-113,Undefined header" {
		t.Errorf("got %v", err)
	}
}

func TestTerminate(t *testing.T) {
	if got := string(terminate("*IDN?")); got != "*IDN?\n" {
		t.Errorf("got %q", got)
	}
	if got := string(terminate("*RST\n")); got != "*RST\n" {
		t.Errorf("got %q", got)
	}
}

func TestResourceName(t *testing.T) {
	padded := "USB0::0x1AB1::0x0E11::DL3A204800938::INSTR" + strings.Repeat("\x00", 214)
	cases := map[string]string{
		padded:                                   "USB0::0x1AB1::0x0E11::DL3A204800938::INSTR",
		"TCPIP0::192.168.1.50::INSTR\x00garbage": "TCPIP0::192.168.1.50::INSTR",
		"ASRL1::INSTR":                           "ASRL1::INSTR",
		"\x00\x00":                               "",
	}
	for in, want := range cases {
		if got := resourceName(in); got != want {
			t.Errorf("resourceName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmptyBus(t *testing.T) {
	if !emptyBus(visa.ERROR_RSRC_NFOUND) {
		t.Error("resource not found should read as an empty bus")
	}
	if emptyBus(visa.SUCCESS) {
		t.Error("success is not an empty bus")
	}
	if emptyBus(visa.ERROR_SYSTEM_ERROR) {
		t.Error("a system error must be reported, not hidden as an empty bus")
	}
}

func TestClosedWrapper(t *testing.T) {
	vw := &VisaObjectWrapper{ResourceName: "USB0::0x1AB1::0x0E11::DL3A204800938::INSTR"}
	if err := vw.Close(); err != nil {
		t.Errorf("closing an unopened wrapper: %s", err)
	}
	vw.closed = true
	if err := vw.Write("*RST"); err == nil {
		t.Error("write to a closed wrapper should fail")
	}
}

// TestDL3000Hardware talks to a real load named in .env.
func TestDL3000Hardware(t *testing.T) {

	// loads values from .env into the system
	_ = godotenv.Load()

	id, exists := os.LookupEnv("RIGOL_DL3000_RESOURCE")
	if !exists {
		t.Skip("RIGOL_DL3000_RESOURCE not set")
	}

	rm, err := OpenResourceManager()
	if err != nil {
		t.Fatal(err)
	}
	defer rm.Close()

	instr, err := rm.OpenMatching(id)
	if err != nil {
		t.Fatal(err)
	}
	defer instr.Close()

	if instr.GetInfo()["Manufacturer"] != "RIGOL TECHNOLOGIES" {
		t.Errorf("instrument \"%s\" is not a Rigol:\n%s", instr.ResourceName, instr)
	}

	dl := instruments.NewDL3000(instr)
	if _, err := dl.Voltage(); err != nil {
		t.Error(err)
	}
	if err := dl.SetCC(0.1, false); err != nil {
		t.Error(err)
	}
	mode, err := dl.Mode()
	if err != nil {
		t.Error(err)
	}
	if mode != instruments.ModeCC {
		t.Errorf("mode = %s, want CC", mode)
	}
}
