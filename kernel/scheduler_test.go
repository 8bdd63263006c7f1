package kernel

import "testing"

func freshState(n int) *KernelState {
	var k KernelState
	for i := 0; i < n; i++ {
		k.AddTask(0x400000, 0x600000, kernelStackTop(i))
	}
	return &k
}

func TestFindReadyRoundRobin(t *testing.T) {
	k := freshState(4)
	k.Current = 1
	k.Tasks[1].State = TaskRunning
	k.Tasks[0].State = TaskReady
	k.Tasks[2].State = TaskReady
	k.Tasks[3].State = TaskDead

	next, found := k.findReady()
	if !found {
		t.Fatal("expected a ready task")
	}
	if next != 2 {
		t.Errorf("next = %d, want 2 (first ready after current+1)", next)
	}
}

func TestFindReadyWrapsAround(t *testing.T) {
	k := freshState(3)
	k.Current = 2
	k.Tasks[2].State = TaskRunning
	k.Tasks[0].State = TaskReady
	k.Tasks[1].State = TaskDead

	next, found := k.findReady()
	if !found {
		t.Fatal("expected a ready task")
	}
	if next != 0 {
		t.Errorf("next = %d, want 0 (wrapped around)", next)
	}
}

func TestFindReadyNoneReady(t *testing.T) {
	k := freshState(2)
	k.Current = 0
	k.Tasks[0].State = TaskRunning
	k.Tasks[1].State = TaskBlocked

	if _, found := k.findReady(); found {
		t.Fatal("expected no ready task")
	}
}

func TestScheduleKeepsRunningTaskWhenAlone(t *testing.T) {
	k := freshState(2)
	k.Current = 0
	k.Tasks[0].State = TaskRunning
	k.Tasks[1].State = TaskBlocked

	f := k.Tasks[0].Frame
	k.Schedule(&f)

	if k.Current != 0 {
		t.Errorf("Current = %d, want 0 (only running task stays current)", k.Current)
	}
	if k.Tasks[0].State != TaskRunning {
		t.Errorf("Tasks[0].State = %v, want Running", k.Tasks[0].State)
	}
}

func TestScheduleSwitchesToReadyTask(t *testing.T) {
	k := freshState(2)
	k.Current = 0
	k.Tasks[0].State = TaskRunning
	k.Tasks[1].State = TaskReady

	f := k.Tasks[0].Frame
	k.Schedule(&f)

	if k.Current != 1 {
		t.Errorf("Current = %d, want 1", k.Current)
	}
	if k.Tasks[1].State != TaskRunning {
		t.Errorf("Tasks[1].State = %v, want Running", k.Tasks[1].State)
	}
	if k.Tasks[0].State != TaskReady {
		t.Errorf("Tasks[0].State = %v, want Ready (demoted from Running)", k.Tasks[0].State)
	}
	if f != k.Tasks[1].Frame {
		t.Error("f was not overwritten with the selected task's frame")
	}
}

func TestYieldMarksCurrentReadyAndReturnsZero(t *testing.T) {
	k := freshState(2)
	k.Current = 0
	k.Tasks[0].State = TaskRunning
	k.Tasks[1].State = TaskReady

	f := k.Tasks[0].Frame
	k.Yield(&f)

	if k.Tasks[0].State != TaskReady {
		t.Errorf("yielding task state = %v, want Ready", k.Tasks[0].State)
	}
	if k.Tasks[0].Frame.Rax() != 0 {
		t.Errorf("yield return value = %d, want 0", k.Tasks[0].Frame.Rax())
	}
}
