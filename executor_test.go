package gemini

import (
	"testing"
)

// writeUniqueFileScript extracts the unique_file_path='...' argument a
// dynamic program receives positionally (as $0 after `sh -c script`) and
// writes body to it, mirroring how a real CGI-style handler parses its
// own argv per the executor's calling convention.
const writeUniqueFileScript = `
raw="$0"
path="${raw#unique_file_path=\'}"
path="${path%\'}"
printf '%s' "$BODY" > "$path"
exit "${EXIT_CODE:-0}"
`

func newTestDynamic(genTime uint64) *DynamicObject {
	return &DynamicObject{
		ProgramPath:   "/bin/sh",
		Args:          []string{"-c", writeUniqueFileScript},
		CmdWorkingDir: ".",
		GenTime:       &genTime,
	}
}

func TestExecutorRunSuccess(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.CmdEnv = []EnvironmentValue{{Key: "BODY", Value: "hello"}}

	body, err := e.Run(d, nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q, want %q", body, "hello")
	}
}

func TestExecutorRunForwardsExitCodeAsStatus(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.CmdEnv = []EnvironmentValue{
		{Key: "BODY", Value: "not found here"},
		{Key: "EXIT_CODE", Value: "51"},
	}

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if gerr.Status != StatusNotFound {
		t.Fatalf("Status = %d, want %d", gerr.Status, StatusNotFound)
	}
	if !gerr.Meta || gerr.Message != "not found here" {
		t.Fatalf("Meta error = %+v, want meta=true message=%q", gerr, "not found here")
	}
}

func TestExecutorRunInvalidExitCodeIsCGIError(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.CmdEnv = []EnvironmentValue{
		{Key: "BODY", Value: "x"},
		{Key: "EXIT_CODE", Value: "7"},
	}

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok || gerr.Status != StatusCGIError {
		t.Fatalf("err = %v, want CGIError", err)
	}
}

func TestExecutorRunPromptsForMissingQuery(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.Query = &QueryParameter{DisplayText: "what is your name?", Private: false}

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok || gerr.Status != StatusInput || gerr.Message != "what is your name?" {
		t.Fatalf("err = %+v, want Input prompt", gerr)
	}
}

func TestExecutorRunPromptsSensitiveForPrivateQuery(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.Query = &QueryParameter{DisplayText: "password?", Private: true}

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok || gerr.Status != StatusSensitiveInput {
		t.Fatalf("err = %+v, want SensitiveInput", gerr)
	}
}

func TestExecutorRunRequiresCertificateWhenConfigured(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.TakesCertificate = true

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok || gerr.Status != StatusCertificateRequired {
		t.Fatalf("err = %+v, want CertificateRequired", gerr)
	}
}

func TestExecutorRunTimesOutWithoutKilling(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := &DynamicObject{
		ProgramPath:   "/bin/sh",
		Args:          []string{"-c", "sleep 2"},
		CmdWorkingDir: ".",
	}
	genTime := uint64(0)
	d.GenTime = &genTime

	_, err := e.Run(d, nil, nil)
	gerr, ok := err.(*Error)
	if !ok || gerr.Status != StatusCGIError {
		t.Fatalf("err = %+v, want CGIError on timeout", gerr)
	}
}

func TestExecutorRunQueryProvided(t *testing.T) {
	e := newExecutor(newTempFileRegistry(t.TempDir()))
	d := newTestDynamic(5)
	d.Query = &QueryParameter{DisplayText: "name?"}
	d.Args = []string{"-c", `
raw=""
for arg in "$0" "$@"; do
	case "$arg" in
		unique_file_path=*) raw="$arg" ;;
	esac
done
path="${raw#unique_file_path=\'}"
path="${path%\'}"
printf 'ok' > "$path"
`}
	query := "alice"

	body, err := e.Run(d, &query, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if string(body) != "ok" {
		t.Fatalf("body = %q, want %q", body, "ok")
	}
}

