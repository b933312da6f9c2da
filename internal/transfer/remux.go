package transfer

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"streamgrab/internal/services"
)

var commandContext = exec.CommandContext

// remuxArgs repackages a transport stream into MP4 without re-encoding. The
// bitstream filter rewrites ADTS AAC framing, which MP4 does not accept.
func remuxArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-c", "copy", "-bsf:a", "aac_adtstoasc", output}
}

func remux(ctx context.Context, binary, input, output string) error {
	cmd := commandContext(ctx, binary, remuxArgs(input, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrDownloadFailed, "remux", "run "+binary, "interrupted", ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrDownloadFailed, "remux", "run "+binary, "executable not found", err)
		}
		return services.Wrap(services.ErrDownloadFailed, "remux", "run "+binary, lastLine(stderr.String()), err)
	}
	return nil
}

func lastLine(output string) string {
	output = strings.TrimSpace(output)
	if idx := strings.LastIndexByte(output, '\n'); idx >= 0 {
		return strings.TrimSpace(output[idx+1:])
	}
	return output
}
