package tracker

import "github.com/wizzlekids/tunebox"

const maxUndo = 256

// History keeps bounded undo and redo stacks of composition snapshots.
type History struct {
	undoStack []tunebox.Composition
	redoStack []tunebox.Composition
}

// Save records the state before a change and forgets the redo stack.
func (h *History) Save(c *tunebox.Composition) {
	h.undoStack = push(h.undoStack, c.Copy())
	h.redoStack = h.redoStack[:0]
}

// Undo replaces c with the last saved state. It reports false if there was
// nothing to undo.
func (h *History) Undo(c *tunebox.Composition) bool {
	if len(h.undoStack) == 0 {
		return false
	}
	h.redoStack = push(h.redoStack, c.Copy())
	*c = h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	return true
}

// Redo is the inverse of Undo.
func (h *History) Redo(c *tunebox.Composition) bool {
	if len(h.redoStack) == 0 {
		return false
	}
	h.undoStack = push(h.undoStack, c.Copy())
	*c = h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	return true
}

func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

func push(stack []tunebox.Composition, c tunebox.Composition) []tunebox.Composition {
	stack = append(stack, c)
	if len(stack) > maxUndo {
		copy(stack, stack[len(stack)-maxUndo:])
		stack = stack[:maxUndo]
	}
	return stack
}
