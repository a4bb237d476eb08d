package errkind

// ExitCode maps an error to the process exit code a CLI driver reports:
// 0 success, 1 SQL error, 2 permission denied, 3 dataset not found, 4
// internal error. Compilation-stage failures the user can fix by editing
// the statement all land on 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case PermissionsError.Is(err):
		return 2
	case DatasetNotFound.Is(err), EmptyDataset.Is(err):
		return 3
	case SqlError.Is(err), MissingSqlStatement.Is(err), UnsupportedSyntax.Is(err),
		ParameterError.Is(err), ColumnNotFound.Is(err), AmbiguousIdentifier.Is(err),
		TypeMismatch.Is(err), UnsupportedFileType.Is(err), UnsupportedSegmentation.Is(err),
		CursorInvalidState.Is(err):
		return 1
	default:
		return 4
	}
}
