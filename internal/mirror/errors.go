package mirror

import (
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// isNotFound reports whether err is S3's "no such key/object" response,
// the only HeadObject failure Exists should swallow.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func copyAll(dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}
