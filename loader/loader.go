// Package loader obtains the introspected object graph of a Python namespace
// by running the pydump helper against a live interpreter, or by reading a
// previously written dump file.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/lunebeam/PTVS/pyobj"
)

// Options configures a load.
type Options struct {
	// Command is the dump helper binary, "pydump" by default.
	Command string
	// SearchPath, when set, is prepended to the interpreter's module
	// resolution path for the initial lookup only.
	SearchPath string
	Logger     *zap.Logger
}

// importWorkarounds maps failure markers printed by the interpreter to a
// module whose import is known to fix the failure. The load is retried once
// with the fix applied.
var importWorkarounds = map[string]string{
	"This must be an MFC application - try 'import win32ui' first": "win32ui",
	"Could not find TCL routines":                                  "tkinter",
}

// Load runs the dump helper for moduleName and decodes the resulting object
// graph. Known environment-specific import failures are retried once with a
// pre-import workaround.
func Load(moduleName string, opt Options) (*pyobj.Object, error) {
	if opt.Command == "" {
		opt.Command = "pydump"
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}

	root, stderr, err := runDump(opt, moduleName, "")
	if err == nil {
		return root, nil
	}
	for marker, preimport := range importWorkarounds {
		if !strings.Contains(stderr, marker) {
			continue
		}
		log.Warn("working around import failure",
			zap.String("module", moduleName),
			zap.String("preimport", preimport))
		root, _, err = runDump(opt, moduleName, preimport)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", moduleName, err)
		}
		return root, nil
	}
	return nil, fmt.Errorf("load %s: %w", moduleName, err)
}

func runDump(opt Options, moduleName, preimport string) (*pyobj.Object, string, error) {
	args := make([]string, 0, 5)
	if opt.SearchPath != "" {
		args = append(args, "-path", opt.SearchPath)
	}
	if preimport != "" {
		args = append(args, "-preimport", preimport)
	}
	args = append(args, moduleName)

	var out, errBuf bytes.Buffer
	cmd := exec.Command(opt.Command, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		os.Stderr.Write(errBuf.Bytes())
		return nil, errBuf.String(), fmt.Errorf("%s %s failed: %w", opt.Command, moduleName, err)
	}
	root, err := pyobj.DecodeGraph(&out)
	if err != nil {
		return nil, errBuf.String(), err
	}
	return root, errBuf.String(), nil
}

// ReadFile decodes an object graph written earlier by the dump helper.
func ReadFile(path string) (*pyobj.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	root, err := pyobj.DecodeGraph(f)
	if err != nil {
		return nil, fmt.Errorf("read dump %s: %w", path, err)
	}
	return root, nil
}

// Prepare points the process environment at the interpreter installation
// named by PYTHONHOME, if any, so the dump helper can find its runtime.
func Prepare() {
	pyHome := os.Getenv("PYTHONHOME")
	if pyHome == "" { // use system
		return
	}
	os.Setenv("PATH", pyHome+"/bin:"+os.Getenv("PATH"))
	os.Setenv("PKG_CONFIG_PATH", pyHome+"/lib/pkgconfig:"+os.Getenv("PKG_CONFIG_PATH"))
	switch runtime.GOOS {
	case "darwin":
		os.Setenv("DYLD_LIBRARY_PATH", pyHome+"/lib:"+os.Getenv("DYLD_LIBRARY_PATH"))
	case "linux":
		os.Setenv("LD_LIBRARY_PATH", pyHome+"/lib:"+os.Getenv("LD_LIBRARY_PATH"))
	}
}

// Check verifies the dump helper is reachable.
func Check(command string) error {
	if command == "" {
		command = "pydump"
	}
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("dump helper %s not found in PATH: %w", command, err)
	}
	return nil
}
