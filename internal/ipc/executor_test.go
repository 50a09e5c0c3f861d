package ipc

import "testing"

type fakeController struct {
	exitCalled, restartCalled, reloadCalled int
}

func (f *fakeController) RequestExit()    { f.exitCalled++ }
func (f *fakeController) RequestRestart() { f.restartCalled++ }
func (f *fakeController) RequestReload()  { f.reloadCalled++ }

func TestServerExecutorDispatch(t *testing.T) {
	tests := []struct {
		command      string
		wantExit     int
		wantReload   int
		wantRestart  int
		wantExitReq  int
		wantRespCode int
	}{
		{command: "reconfigure", wantReload: 1, wantRespCode: 0},
		{command: "restart", wantRestart: 1, wantRespCode: 0},
		{command: "exit", wantExitReq: 1, wantRespCode: 0},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			ctrl := &fakeController{}
			exec := ServerExecutor{Controller: ctrl}
			resp := exec.Execute(ControlRequest{Command: tt.command})
			if resp.ExitCode != tt.wantRespCode {
				t.Errorf("ExitCode = %d, want %d", resp.ExitCode, tt.wantRespCode)
			}
			if ctrl.reloadCalled != tt.wantReload {
				t.Errorf("RequestReload called %d times, want %d", ctrl.reloadCalled, tt.wantReload)
			}
			if ctrl.restartCalled != tt.wantRestart {
				t.Errorf("RequestRestart called %d times, want %d", ctrl.restartCalled, tt.wantRestart)
			}
			if ctrl.exitCalled != tt.wantExitReq {
				t.Errorf("RequestExit called %d times, want %d", ctrl.exitCalled, tt.wantExitReq)
			}
		})
	}
}

func TestServerExecutorUnknownCommand(t *testing.T) {
	ctrl := &fakeController{}
	exec := ServerExecutor{Controller: ctrl}
	resp := exec.Execute(ControlRequest{Command: "bogus"})
	if resp.ExitCode == 0 {
		t.Fatal("unknown command should report a nonzero exit code")
	}
	if ctrl.exitCalled+ctrl.restartCalled+ctrl.reloadCalled != 0 {
		t.Fatal("unknown command must not invoke any controller method")
	}
}
