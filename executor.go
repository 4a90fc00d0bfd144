package gemini

import (
	"crypto/x509"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Executor spawns the external program backing a Dynamic leaf and
// collects its output through a temp file, the same handshake a CGI
// script uses: the program is told where to write via an argument
// rather than through stdout, so its own stdout/stderr stay free for
// diagnostics.
type Executor struct {
	tempFiles *tempFileRegistry
}

func newExecutor(tempFiles *tempFileRegistry) *Executor {
	return &Executor{tempFiles: tempFiles}
}

// Run invokes d.ProgramPath and returns its generated body. query and
// cert are nil for a cache-refresh invocation, which never supplies
// either.
func (e *Executor) Run(d *DynamicObject, query *string, cert *x509.Certificate) ([]byte, error) {
	tempPath, tempID, err := e.tempFiles.allocate()
	if err != nil {
		return nil, err
	}

	args := append([]string{}, d.Args...)
	args = append(args, fmt.Sprintf("unique_file_path='%s'", tempPath))

	if d.Query != nil {
		if query == nil {
			status := StatusInput
			if d.Query.Private {
				status = StatusSensitiveInput
			}
			e.tempFiles.release(tempPath, tempID)
			return nil, newMetaError(status, d.Query.DisplayText)
		}
		args = append(args, fmt.Sprintf("query='%s'", *query))
	}

	var certPath string
	var certID uint64
	haveCertFile := false
	if d.TakesCertificate {
		if cert == nil {
			e.tempFiles.release(tempPath, tempID)
			return nil, newMetaError(StatusCertificateRequired, "A certificate is required to access this content")
		}
		certPath, certID, err = e.tempFiles.allocate()
		if err != nil {
			e.tempFiles.release(tempPath, tempID)
			return nil, err
		}
		haveCertFile = true
		if err := os.WriteFile(certPath, []byte(formatCertificate(cert)), 0o600); err != nil {
			e.tempFiles.release(tempPath, tempID)
			e.tempFiles.release(certPath, certID)
			return nil, newError(StatusCGIError, "process failed to generate content: %v", err)
		}
		args = append(args, fmt.Sprintf("cert_file_path='%s'", certPath))
	}

	cmd := exec.Command(d.ProgramPath, args...)
	cmd.Dir = d.CmdWorkingDir
	cmd.Env = os.Environ()
	for _, ev := range d.CmdEnv {
		cmd.Env = append(cmd.Env, ev.Key+"="+ev.Value)
	}

	releaseCert := func() {
		if haveCertFile {
			e.tempFiles.release(certPath, certID)
		}
	}

	if err := cmd.Start(); err != nil {
		e.tempFiles.release(tempPath, tempID)
		releaseCert()
		return nil, newError(StatusCGIError, "process failed to generate content: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	genTime := time.Duration(*d.GenTime) * time.Second
	select {
	case <-done:
		releaseCert()
		return e.finish(cmd, tempPath, tempID)
	case <-time.After(genTime):
		// Deliberately not killed: a still-running process keeps its
		// temp file slot reserved until the sweeper or a future call
		// to release reclaims it.
		releaseCert()
		return nil, newError(StatusCGIError, "process did not exit within the expected time or exited without producing a result")
	}
}

func (e *Executor) finish(cmd *exec.Cmd, tempPath string, tempID uint64) ([]byte, error) {
	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}

	if code != 0 && code != 20 {
		body, err := e.readAndRemove(tempPath, tempID)
		if err != nil {
			return nil, err
		}
		status := Status(code)
		if !status.Valid() {
			return nil, newError(StatusCGIError, "invalid status code %d returned", code)
		}
		return nil, &Error{Message: string(body), Status: status, Meta: true}
	}

	return e.readAndRemove(tempPath, tempID)
}

func (e *Executor) readAndRemove(path string, id uint64) ([]byte, error) {
	data, err := os.ReadFile(path)
	e.tempFiles.release(path, id)
	if err != nil {
		return nil, newError(StatusCGIError, "failed to read generated content: %v", err)
	}
	return data, nil
}
