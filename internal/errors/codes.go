// Package errors provides structured error handling for repograph.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, repository)
//   - 3XX: Network errors (embedding service, connectivity)
//   - 4XX: Validation errors (query parameters, request bodies)
//   - 5XX: Store and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and repository I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryStore indicates persistence-layer errors.
	CategoryStore Category = "STORE"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the run can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigMissing = "ERR_101_CONFIG_MISSING"
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileSkipped  = "ERR_201_FILE_SKIPPED"
	ErrCodeFileTooLarge = "ERR_202_FILE_TOO_LARGE"
	ErrCodeRepoNotFound = "ERR_203_REPO_NOT_FOUND"
	ErrCodeDiffFailed   = "ERR_204_DIFF_FAILED"

	// Network errors (300-399)
	ErrCodeEmbedFailure     = "ERR_301_EMBED_FAILURE"
	ErrCodeModelUnavailable = "ERR_302_MODEL_UNAVAILABLE"
	ErrCodeNetworkTimeout   = "ERR_303_NETWORK_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInputInvalid = "ERR_401_INPUT_INVALID"
	ErrCodeNotFound     = "ERR_402_NOT_FOUND"
	ErrCodeQueryEmpty   = "ERR_403_QUERY_EMPTY"

	// Store and internal errors (500-599)
	ErrCodeStoreFailure     = "ERR_501_STORE_FAILURE"
	ErrCodeMigrationFailure = "ERR_502_MIGRATION_FAILURE"
	ErrCodeStoreConflict    = "ERR_503_STORE_CONFLICT"
	ErrCodeCacheFailure     = "ERR_504_CACHE_FAILURE"
	ErrCodeCancelled        = "ERR_505_CANCELLED"
	ErrCodeInternal         = "ERR_506_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '5':
		return CategoryStore
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Migration and config failures abort the process; per-file and
// cache failures only degrade the current run.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigMissing, ErrCodeConfigInvalid, ErrCodeMigrationFailure:
		return SeverityFatal
	case ErrCodeFileSkipped, ErrCodeFileTooLarge, ErrCodeCacheFailure, ErrCodeStoreConflict:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedFailure, ErrCodeNetworkTimeout, ErrCodeStoreFailure:
		return true
	default:
		return false
	}
}
