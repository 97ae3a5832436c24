package dataset

import (
	"fmt"
	"math"
)

// MeanOverDim reduces the variable across the named dimension with a
// NaN-ignoring arithmetic mean and drops the dimension and its coordinate.
// A cell whose inputs are all NaN stays NaN.
func (v *Variable) MeanOverDim(dim string) (*Variable, error) {
	axis := v.dimIndex(dim)
	if axis < 0 {
		return nil, fmt.Errorf("variable %q has no dimension %q", v.Name, dim)
	}

	outDims := make([]string, 0, len(v.Dims)-1)
	outShape := make([]int, 0, len(v.Shape)-1)
	for i, d := range v.Dims {
		if i == axis {
			continue
		}
		outDims = append(outDims, d)
		outShape = append(outShape, v.Shape[i])
	}

	outLen := 1
	for _, s := range outShape {
		outLen *= s
	}
	sums := make([]float64, outLen)
	counts := make([]int, outLen)

	st := v.strides()
	n := v.Shape[axis]
	// outer iterates over all positions with the reduced axis removed.
	idx := make([]int, len(v.Shape))
	for flat := 0; flat < outLen; flat++ {
		rem := flat
		for i := len(outShape) - 1; i >= 0; i-- {
			srcDim := i
			if i >= axis {
				srcDim = i + 1
			}
			idx[srcDim] = rem % outShape[i]
			rem /= outShape[i]
		}
		base := 0
		for i, x := range idx {
			if i == axis {
				continue
			}
			base += x * st[i]
		}
		for k := 0; k < n; k++ {
			val := v.Data[base+k*st[axis]]
			if math.IsNaN(val) {
				continue
			}
			sums[flat] += val
			counts[flat]++
		}
	}

	out := make([]float64, outLen)
	for i := range out {
		if counts[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sums[i] / float64(counts[i])
	}

	res, err := NewVariable(v.Name, outDims, outShape, out)
	if err != nil {
		return nil, err
	}
	res.Attrs = cloneAttrs(v.Attrs)
	res.Float32 = v.Float32
	res.Time = v.Time.Clone()
	for k, c := range v.Coords {
		if k == dim {
			continue
		}
		res.Coords[k] = c.Clone()
	}
	return res, nil
}

// Transpose reorders the variable's dimensions. The order slice must be a
// permutation of the current dimension names.
func (v *Variable) Transpose(order ...string) (*Variable, error) {
	if len(order) != len(v.Dims) {
		return nil, fmt.Errorf("variable %q: transpose wants %d dims, got %d", v.Name, len(v.Dims), len(order))
	}
	perm := make([]int, len(order)) // perm[newAxis] = oldAxis
	seen := make(map[int]bool, len(order))
	for i, d := range order {
		j := v.dimIndex(d)
		if j < 0 {
			return nil, fmt.Errorf("variable %q has no dimension %q", v.Name, d)
		}
		if seen[j] {
			return nil, fmt.Errorf("variable %q: duplicate dimension %q in transpose", v.Name, d)
		}
		seen[j] = true
		perm[i] = j
	}

	outShape := make([]int, len(order))
	for i, j := range perm {
		outShape[i] = v.Shape[j]
	}
	out := make([]float64, len(v.Data))
	srcStrides := v.strides()

	idx := make([]int, len(outShape)) // index in the new layout
	for flat := range out {
		src := 0
		for i, x := range idx {
			src += x * srcStrides[perm[i]]
		}
		out[flat] = v.Data[src]
		for i := len(idx) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < outShape[i] {
				break
			}
			idx[i] = 0
		}
	}

	res, err := NewVariable(v.Name, order, outShape, out)
	if err != nil {
		return nil, err
	}
	res.Attrs = cloneAttrs(v.Attrs)
	res.Float32 = v.Float32
	res.Time = v.Time.Clone()
	for k, c := range v.Coords {
		res.Coords[k] = c.Clone()
	}
	return res, nil
}

// SelectRecords subsets the variable along the time axis, keeping the given
// record indices in order. The time axis must be the leading dimension.
func (v *Variable) SelectRecords(indices []int) (*Variable, error) {
	if len(v.Dims) == 0 || v.Dims[0] != DimTime {
		return nil, fmt.Errorf("variable %q: time is not the leading dimension", v.Name)
	}
	if v.Time == nil {
		return nil, fmt.Errorf("variable %q has no materialized time coordinate", v.Name)
	}

	recSize := 1
	for _, s := range v.Shape[1:] {
		recSize *= s
	}
	out := make([]float64, 0, len(indices)*recSize)
	tc := &TimeCoordinate{
		Name:      v.Time.Name,
		Attrs:     cloneAttrs(v.Time.Attrs),
		Calendar:  v.Time.Calendar,
		Converted: v.Time.Converted,
	}
	for _, i := range indices {
		if i < 0 || i >= v.Shape[0] {
			return nil, fmt.Errorf("variable %q: record index %d out of range [0,%d)", v.Name, i, v.Shape[0])
		}
		out = append(out, v.Data[i*recSize:(i+1)*recSize]...)
		tc.Values = append(tc.Values, v.Time.Values[i])
		if v.Time.Bounds != nil {
			tc.Bounds = append(tc.Bounds, v.Time.Bounds[i])
		}
	}

	outShape := append([]int{len(indices)}, v.Shape[1:]...)
	res, err := NewVariable(v.Name, v.Dims, outShape, out)
	if err != nil {
		return nil, err
	}
	res.Attrs = cloneAttrs(v.Attrs)
	res.Float32 = v.Float32
	res.Time = tc
	for k, c := range v.Coords {
		res.Coords[k] = c.Clone()
	}
	return res, nil
}

// Concat joins per-file fragments along the time axis in the order given.
// Fragment order is authoritative: no reordering and no deduplication. All
// fragments must agree on dimension names and non-time shape; attributes and
// coordinates are taken from the first fragment.
func Concat(frags []*Variable) (*Variable, error) {
	if len(frags) == 0 {
		return nil, fmt.Errorf("concat of zero fragments")
	}
	first := frags[0]
	if first.Time == nil {
		return nil, fmt.Errorf("variable %q has no materialized time coordinate", first.Name)
	}
	// Raw fragments still carry the provider's time name; the axis is
	// identified by the time coordinate, not by the canonical name.
	if len(first.Dims) == 0 || first.Dims[0] != first.Time.Name {
		return nil, fmt.Errorf("variable %q: time is not the leading dimension", first.Name)
	}
	if len(frags) == 1 {
		return first, nil
	}

	total := 0
	for _, f := range frags {
		if err := compatible(first, f); err != nil {
			return nil, err
		}
		total += f.Shape[0]
	}

	data := make([]float64, 0, len(first.Data)/first.Shape[0]*total)
	tc := &TimeCoordinate{
		Name:      first.Time.Name,
		Attrs:     cloneAttrs(first.Time.Attrs),
		Calendar:  first.Time.Calendar,
		Converted: first.Time.Converted,
	}
	for _, f := range frags {
		data = append(data, f.Data...)
		tc.Values = append(tc.Values, f.Time.Values...)
		if f.Time.Bounds != nil {
			tc.Bounds = append(tc.Bounds, f.Time.Bounds...)
		}
		tc.Converted = tc.Converted || f.Time.Converted
	}
	if tc.Bounds != nil && len(tc.Bounds) != len(tc.Values) {
		// Some fragments carried bounds and some did not; drop them rather
		// than emit a partial bounds coordinate.
		tc.Bounds = nil
	}

	outShape := append([]int{total}, first.Shape[1:]...)
	res, err := NewVariable(first.Name, first.Dims, outShape, data)
	if err != nil {
		return nil, err
	}
	res.Attrs = cloneAttrs(first.Attrs)
	res.Float32 = first.Float32
	res.Time = tc
	for k, c := range first.Coords {
		res.Coords[k] = c.Clone()
	}
	return res, nil
}

func compatible(a, b *Variable) error {
	if len(a.Dims) != len(b.Dims) {
		return fmt.Errorf("fragment %q: dimension count mismatch (%d vs %d)", b.Name, len(a.Dims), len(b.Dims))
	}
	for i := range a.Dims {
		if a.Dims[i] != b.Dims[i] {
			return fmt.Errorf("fragment %q: dimension %d is %q, want %q", b.Name, i, b.Dims[i], a.Dims[i])
		}
		if i > 0 && a.Shape[i] != b.Shape[i] {
			return fmt.Errorf("fragment %q: size of %q is %d, want %d", b.Name, a.Dims[i], b.Shape[i], a.Shape[i])
		}
	}
	if b.Time == nil {
		return fmt.Errorf("fragment %q has no materialized time coordinate", b.Name)
	}
	return nil
}
