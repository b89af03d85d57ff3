//go:build windows

package infra

import (
	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"go.uber.org/zap"
)

// shellLinkResolver resolves shortcuts through the WScript.Shell COM
// object. Each Resolve call initializes COM for the calling goroutine;
// the reader runs on an arbitrary goroutine from the collector fan-out.
type shellLinkResolver struct {
	logger *zap.Logger
}

func newShellLinkResolver(logger *zap.Logger) LinkResolver {
	return &shellLinkResolver{logger: logger}
}

func (r *shellLinkResolver) Resolve(path string) (string, bool) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// S_FALSE means COM was already initialized on this thread.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != uintptr(1) {
			return "", false
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		r.logger.Debug("WScript.Shell unavailable", zap.Error(err))
		return "", false
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return "", false
	}
	defer shell.Release()

	result, err := oleutil.CallMethod(shell, "CreateShortcut", path)
	if err != nil {
		return "", false
	}
	shortcut := result.ToIDispatch()
	defer shortcut.Release()

	targetVar, err := oleutil.GetProperty(shortcut, "TargetPath")
	if err != nil {
		return "", false
	}
	target := targetVar.ToString()
	if target == "" {
		return "", false
	}

	if argsVar, err := oleutil.GetProperty(shortcut, "Arguments"); err == nil {
		if args := argsVar.ToString(); args != "" {
			return target + " " + args, true
		}
	}
	return target, true
}
