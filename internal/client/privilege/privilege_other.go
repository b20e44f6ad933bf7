//go:build !unix

package privilege

func ids() (ruid, euid int) {
	return 0, 0
}

func setEffective(int) error {
	return ErrNotElevated
}
