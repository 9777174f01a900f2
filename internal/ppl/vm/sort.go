package vm

import (
	"fmt"
	"sort"

	"github.com/icyboard/icyboard/internal/ppl/ast"
	"github.com/icyboard/icyboard/internal/ppl/value"
)

// execSort implements SORT array, indices (spec.md §4.5.4): indices is
// redimed to array's size and filled with a permutation of 0..n-1 such that
// array[indices[i]] <= array[indices[j]] for i<j, ordered by value.Compare.
func (vm *VM) execSort(args []ast.Expression) error {
	if len(args) != 2 {
		return fmt.Errorf("vm: SORT expects array, indices")
	}
	arrIdent, ok := args[0].(*ast.Ident)
	if !ok {
		return fmt.Errorf("vm: SORT array argument must be an identifier")
	}
	idxIdent, ok := args[1].(*ast.Ident)
	if !ok {
		return fmt.Errorf("vm: SORT indices argument must be an identifier")
	}
	arrRef, ok := vm.refs[arrIdent]
	if !ok {
		return fmt.Errorf("vm: unresolved SORT array argument")
	}
	idxRef, ok := vm.refs[idxIdent]
	if !ok {
		return fmt.Errorf("vm: unresolved SORT indices argument")
	}

	arr := vm.getSlot(nil, arrRef.VarID)
	if !arr.IsArray() {
		return &RuntimeError{Msg: "SORT destination non-array"}
	}
	n := arr.Sizes[0]
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return value.Compare(arr.Elems[perm[i]], arr.Elems[perm[j]]) < 0
	})

	indices, err := value.NewArray(value.Integer, n-1)
	if err != nil {
		return &RuntimeError{Msg: err.Error(), Err: err}
	}
	for i, p := range perm {
		if err := indices.SetIndex(value.NewInteger(int32(p)), i); err != nil {
			return &RuntimeError{Msg: err.Error(), Err: err}
		}
	}
	vm.setSlot(nil, idxRef.VarID, indices)
	return nil
}
