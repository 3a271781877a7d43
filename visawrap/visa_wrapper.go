// Package visawrap connects instruments through a VISA library.
package visawrap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jpoirier/visa"
	"github.com/pkg/errors"

	"github.com/Electronic-Yoda/instruments"
)

const (
	bufferSize = 1024
	// Rigol instruments report "0,\"No error\"" here
	rigolErrorQuery = ":SYST:ERR?"
	// VISA expression matching every instrument resource
	instrumentExpr = "?*INSTR"
)

// ResourceManager is a session to the default VISA resource manager.
type ResourceManager struct {
	rm     visa.Session
	closed bool
}

// OpenResourceManager opens the default VISA resource manager.
func OpenResourceManager() (*ResourceManager, error) {
	rm, visaStatus := visa.OpenDefaultRM()
	if visaStatus != visa.SUCCESS {
		return nil, errors.Wrap(statusError(nil, visaStatus), "an VISA error occurred while opening resource manager")
	}
	return &ResourceManager{rm: rm}, nil
}

// ListResources returns the names of every instrument visible to VISA.
func (m *ResourceManager) ListResources() ([]string, error) {
	findList, count, desc, visaStatus := m.rm.FindRsrc(instrumentExpr)
	if emptyBus(visaStatus) {
		return nil, nil
	}
	if visaStatus != visa.SUCCESS {
		return nil, errors.Wrap(statusError(nil, visaStatus), "an VISA error occurred while listing resources")
	}
	defer visa.Close(findList)

	resources := make([]string, 0, count)
	resources = append(resources, resourceName(desc))
	for i := uint32(1); i < count; i++ {
		desc, visaStatus = visa.FindNext(findList)
		if visaStatus != visa.SUCCESS {
			return resources, errors.Wrap(statusError(nil, visaStatus), "an VISA error occurred while listing resources")
		}
		resources = append(resources, resourceName(desc))
	}
	return resources, nil
}

// emptyBus reports whether a find status means no instrument is attached.
func emptyBus(visaStatus visa.Status) bool {
	return visaStatus == visa.ERROR_RSRC_NFOUND
}

// resourceName cuts a resource description at its NUL padding.
func resourceName(desc string) string {
	if i := strings.IndexByte(desc, 0); i >= 0 {
		desc = desc[:i]
	}
	return strings.TrimSpace(desc)
}

// Open connects to the named resource and reads its identification.
func (m *ResourceManager) Open(name string) (*VisaObjectWrapper, error) {
	vw := &VisaObjectWrapper{ResourceName: name, ResourceManager: &m.rm}
	vw.SetErrorQuery(rigolErrorQuery)
	if err := vw.Init(); err != nil {
		return nil, err
	}
	return vw, nil
}

// OpenMatching opens the only resource whose name contains id, e.g.
// instruments.DL3000ResourceID.
func (m *ResourceManager) OpenMatching(id string) (*VisaObjectWrapper, error) {
	name, err := instruments.FindResource(m, id)
	if err != nil {
		return nil, err
	}
	return m.Open(name)
}

// Close releases the resource manager session.
func (m *ResourceManager) Close() error {
	if m.closed {
		return nil
	}
	if visaStatus := m.rm.Close(); visaStatus != visa.SUCCESS {
		return errors.Wrap(statusError(nil, visaStatus), "an VISA error occurred while closing resource manager")
	}
	m.closed = true
	return nil
}

// VisaObjectWrapper is an open VISA instrument session.
type VisaObjectWrapper struct {
	ResourceName    string
	ResourceManager *visa.Session
	instr           *visa.Object
	errorQuery      string
	info            map[string]string
	closed          bool
}

func statusError(instr *visa.Object, visaStatus visa.Status) error {
	if instr == nil {
		return fmt.Errorf("%d", visaStatus)
	}
	statusDesc, _ := instr.StatusDesc(visaStatus)
	if i := strings.Index(statusDesc, "."); i >= 0 {
		statusDesc = statusDesc[:i]
	}
	return fmt.Errorf("%d, %s", visaStatus, statusDesc)
}

func (vw *VisaObjectWrapper) Init() error {

	instr, visaStatus := vw.ResourceManager.Open(vw.ResourceName, uint32(visa.NULL), uint32(visa.NULL))
	if visaStatus != visa.SUCCESS {
		context := fmt.Sprintf("an VISA error occurred while connect to \"%s\"", vw.ResourceName)
		return errors.Wrap(statusError(nil, visaStatus), context)
	}

	vw.instr = &instr
	response, err := vw.Query("*IDN?")
	if err != nil {
		return err
	}
	vw.info = parseIdentity(response)
	return nil
}

func parseIdentity(response string) map[string]string {
	info := make(map[string]string, 4)
	fields := []string{"Manufacturer", "Model", "Serial", "Version"}
	splitResponse := strings.Split(response, ",")
	for i, field := range fields {
		if i < len(splitResponse) {
			info[field] = strings.TrimSpace(splitResponse[i])
		}
	}
	return info
}

func terminate(cmd string) []byte {
	if !strings.HasSuffix(cmd, "\n") {
		cmd += "\n"
	}
	return []byte(cmd)
}

func (vw *VisaObjectWrapper) write(cmd string) error {
	if vw.closed {
		return errors.Errorf("write \"%s\" to closed session \"%s\"", cmd, vw.ResourceName)
	}
	buf := terminate(cmd)
	_, visaStatus := vw.instr.Write(buf, uint32(len(buf)))
	if visaStatus != visa.SUCCESS {
		context := fmt.Sprintf("an VISA error occurred while writing \"%s\" command", cmd)
		return errors.Wrap(statusError(vw.instr, visaStatus), context)
	}
	return nil
}

// Write command to instr and read response
func (vw *VisaObjectWrapper) Query(cmd string) (string, error) {

	if err := vw.write(cmd); err != nil {
		return "", err
	}

	bytes, _, visaStatus := vw.instr.Read(bufferSize)
	if visaStatus != visa.SUCCESS {
		statusErr := statusError(vw.instr, visaStatus)
		context := fmt.Sprintf("an VISA error occurred while reading response after \"%s\" command", cmd)
		return "", errors.Wrap(statusErr, context)
	}
	response := string(bytes)
	if len(response) == 0 {
		return response, fmt.Errorf("get empty response from instr after \"%s\" command", cmd)
	}
	if i := strings.Index(response, "\n"); i >= 0 {
		response = response[:i]
	}
	return response, nil
}

// Write command to instr
func (vw *VisaObjectWrapper) Write(cmd string) error {

	if err := vw.write(cmd); err != nil {
		return err
	}
	instrErr := vw.CheckErrors()
	if instrErr != nil {
		context := fmt.Sprintf("an instr error occurred while writing \"%s\" command", cmd)
		return errors.Wrap(instrErr, context)
	}
	return nil
}

// WriteWithoutCheck writes cmd without querying the error queue afterwards.
// Keypad presses go through it.
func (vw *VisaObjectWrapper) WriteWithoutCheck(cmd string) error {
	return vw.write(cmd)
}

// Check instrument errors
func (vw *VisaObjectWrapper) CheckErrors() error {

	if vw.errorQuery == "" {
		return nil
	}
	res, err := vw.Query(vw.errorQuery + ";*CLS")
	if err != nil {
		return err
	}
	return parseErrorResponse(res)
}

func parseErrorResponse(res string) error {
	res = strings.ReplaceAll(res, "\"", "")
	splitRes := strings.Split(res, ",")
	code, _ := strconv.Atoi(strings.TrimSpace(splitRes[0]))

	if code != 0 {
		return errors.New(res)
	}
	return nil
}

// Close the instrument session. Closing twice is a no-op.
func (vw *VisaObjectWrapper) Close() error {
	if vw.closed || vw.instr == nil {
		return nil
	}
	if visaStatus := vw.instr.Close(); visaStatus != visa.SUCCESS {
		context := fmt.Sprintf("an VISA error occurred while closing \"%s\"", vw.ResourceName)
		return errors.Wrap(statusError(nil, visaStatus), context)
	}
	vw.closed = true
	return nil
}

// Cast instrument info to string
func (vw *VisaObjectWrapper) String() string {
	infoStr := fmt.Sprintf(
		"Manufacturer:\t%s\n"+
			"Model:\t\t%s\n"+
			"Serial:\t\t%s\n"+
			"Version:\t%s\n",
		vw.info["Manufacturer"], vw.info["Model"], vw.info["Serial"], vw.info["Version"])
	return infoStr
}

// GetInfo returns the *IDN? fields read on Init.
func (vw *VisaObjectWrapper) GetInfo() map[string]string {
	return vw.info
}

func (vw *VisaObjectWrapper) SetErrorQuery(query string) {
	vw.errorQuery = query
}
