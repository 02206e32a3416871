package static

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrNotFound      = errors.New("static: file not found")
	ErrInvalidPath   = errors.New("static: invalid path")
	ErrTooLarge      = errors.New("static: file exceeds size limit")
	ErrInvalidConfig = errors.New("static: invalid configuration")
	ErrAccessDenied  = errors.New("static: access denied")
	ErrFetchFailed   = errors.New("static: fetch failed")
)

// wrapS3Error maps S3 API errors onto the package sentinels.
func wrapS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", ErrFetchFailed, err)
}
