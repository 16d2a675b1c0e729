package differenceutil

// DifferenceAndIntersectionStrings  O(len(src) + len(des))
func DifferenceAndIntersectionStrings(src, des []string) (onlySrc, intersection, onlyDes []string) {
	m := make(map[string]uint8)
	for _, k := range src {
		m[k] |= 1 << 0
	}
	for _, k := range des {
		m[k] |= 1 << 1
	}
	return split(m)
}

// DifferenceAndIntersectionObjects compares two slices by the keys getSrcKey and getDesKey extract.
func DifferenceAndIntersectionObjects[S, D any](src []S, des []D, getSrcKey func(S) string, getDesKey func(D) string) (onlySrc, intersection, onlyDes []string) {
	m := make(map[string]uint8)
	for _, s := range src {
		m[getSrcKey(s)] |= 1 << 0
	}
	for _, d := range des {
		m[getDesKey(d)] |= 1 << 1
	}
	return split(m)
}

func split(m map[string]uint8) (onlySrc, intersection, onlyDes []string) {
	for k, v := range m {
		a := v&(1<<0) != 0
		b := v&(1<<1) != 0
		switch {
		case a && b:
			intersection = append(intersection, k)
		case a && !b:
			onlySrc = append(onlySrc, k)
		case !a && b:
			onlyDes = append(onlyDes, k)
		}
	}
	return
}
