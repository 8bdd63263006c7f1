package kernel

import "testing"

func TestSameName(t *testing.T) {
	e := &ServiceEntry{Active: true, NameLen: 3}
	copy(e.Name[:], "foo")

	if !sameName(e, []byte("foo")) {
		t.Error("sameName(foo, foo) = false, want true")
	}
	if sameName(e, []byte("bar")) {
		t.Error("sameName(foo, bar) = true, want false")
	}
	if sameName(e, []byte("fo")) {
		t.Error("sameName(foo, fo) = true, want false (length differs)")
	}
	if sameName(e, []byte("foox")) {
		t.Error("sameName(foo, foox) = true, want false (length differs)")
	}
}

func TestSysErrString(t *testing.T) {
	cases := map[SysErr]string{
		ErrNone:       "none",
		ErrBadArg:     "BadArg",
		ErrBadUserPtr: "BadUserPtr",
		ErrBadCap:     "BadCap",
		ErrDeviceFail: "DeviceFail",
		ErrNotFound:   "NotFound",
		SysErr(99):    "unknown",
	}
	for err, want := range cases {
		if got := err.String(); got != want {
			t.Errorf("SysErr(%d).String() = %q, want %q", err, got, want)
		}
	}
}

func TestTaskStateString(t *testing.T) {
	cases := map[TaskState]string{
		TaskDead:      "Dead",
		TaskReady:     "Ready",
		TaskRunning:   "Running",
		TaskBlocked:   "Blocked",
		TaskState(99): "?",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("TaskState(%d).String() = %q, want %q", s, got, want)
		}
	}
}
