package gfx

import "testing"

type fakeFramebuffer struct{ baseImage }

func (*fakeFramebuffer) Release()        {}
func (*fakeFramebuffer) isFramebuffer()  {}

func TestPassBuilderRecordsOps(t *testing.T) {
	fb := &fakeFramebuffer{baseImage{w: 64, h: 64}}
	p := NewPass(fb).
		Clear([4]float32{0, 0, 0, 1}).
		FillRect(0, 0, 10, 10, [4]float32{1, 0, 0, 1}, false).
		CopyTexture(nil, [4]int{0, 0, 8, 8}, [4]int{0, 0, 8, 8}, 0, 1, true).
		Sync()

	if len(p.Ops) != 4 {
		t.Fatalf("got %d ops, want 4", len(p.Ops))
	}
	if _, ok := p.Ops[0].(OpClear); !ok {
		t.Errorf("op 0 = %T, want OpClear", p.Ops[0])
	}
	if _, ok := p.Ops[1].(OpFillRect); !ok {
		t.Errorf("op 1 = %T, want OpFillRect", p.Ops[1])
	}
	if _, ok := p.Ops[2].(OpCopyTexture); !ok {
		t.Errorf("op 2 = %T, want OpCopyTexture", p.Ops[2])
	}
	if _, ok := p.Ops[3].(OpSync); !ok {
		t.Errorf("op 3 = %T, want OpSync", p.Ops[3])
	}
}

func TestClearRectRecordsTheGivenRect(t *testing.T) {
	fb := &fakeFramebuffer{baseImage{w: 64, h: 64}}
	p := NewPass(fb).ClearRect(4, 8, 16, 32, [4]float32{1, 1, 1, 1})

	op, ok := p.Ops[0].(OpClear)
	if !ok {
		t.Fatalf("op 0 = %T, want OpClear", p.Ops[0])
	}
	if op.X != 4 || op.Y != 8 || op.W != 16 || op.H != 32 {
		t.Fatalf("got rect (%d,%d,%d,%d), want (4,8,16,32)", op.X, op.Y, op.W, op.H)
	}
}

func TestBaseImageVersionBumps(t *testing.T) {
	im := &baseImage{w: 4, h: 4}
	if im.ExecutionVersion() != 0 {
		t.Fatalf("got version %d, want 0", im.ExecutionVersion())
	}
	im.bumpVersion()
	if im.ExecutionVersion() != 1 {
		t.Fatalf("got version %d, want 1", im.ExecutionVersion())
	}
}
