package main_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/containerd/nerdctl/mod/tigron/expect"
	"github.com/containerd/nerdctl/mod/tigron/test"

	"github.com/farcloser/agar/pkg/agar"
)

func setup() *test.Case {
	_, thisFile, _, _ := runtime.Caller(0) //nolint:dogsled // runtime.Caller returns 4 values, only file is needed
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
	binaryPath := filepath.Join(projectRoot, "bin", "turnmark")

	return agar.Setup(binaryPath)
}

func TestTurnmarkCLI(t *testing.T) {
	testCase := setup()

	testCase.SubTests = []*test.Case{
		{
			Description: "run without arguments fails",
			Command:     test.Command("run"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "run nonexistent file fails",
			Command:     test.Command("run", "/nonexistent/path/file.wav"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "eval without arguments fails",
			Command:     test.Command("eval"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "eval nonexistent manifest fails",
			Command:     test.Command("eval", "/nonexistent/manifest.json"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
		{
			Description: "tune without required flags fails",
			Command:     test.Command("tune"),
			Expected:    test.Expects(expect.ExitCodeGenericFail, nil, nil),
		},
	}

	testCase.Run(t)
}
