package service

import (
	"bytes"
	"io"
	"mime/quotedprintable"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vouchersys/vouchergate/internal/config"
	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

func TestBuildMessage(t *testing.T) {
	ref := model.VoucherRef{VoucherID: "42", VoucherKind: model.KindCheque, VoucherNo: "CV-042"}
	html := renderDeleteOTPEmail(ref, "135790")
	msg, err := buildMessage("no-reply@vouchersys.test", "finance@vouchersys.test", deleteOTPSubject, html)
	require.NoError(t, err)

	head, body, found := bytes.Cut(msg, []byte("\r\n\r\n"))
	require.True(t, found)
	headers := string(head)
	require.Contains(t, headers, "From: no-reply@vouchersys.test\r\n")
	require.Contains(t, headers, "To: finance@vouchersys.test\r\n")
	require.Contains(t, headers, "Subject: "+deleteOTPSubject)
	require.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
	require.Contains(t, headers, "Content-Transfer-Encoding: quoted-printable")

	// the body must decode back to the exact rendered HTML
	decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(body)))
	require.NoError(t, err)
	require.Equal(t, html, string(decoded))
	require.Contains(t, string(decoded), "135790")
}

func TestSMTPSender_RequiresConfig(t *testing.T) {
	sender := NewEmailSender(config.MailConfig{Host: "", Port: 0, From: "  "})
	err := sender.Send("finance@vouchersys.test", "subject", "<p>body</p>")
	require.ErrorIs(t, err, appErr.ErrConfig)
}

func TestBuildMessage_BodyLinesStaySMTPSafe(t *testing.T) {
	long := "<p>" + strings.Repeat("x", 4000) + "</p>"
	msg, err := buildMessage("a@b.test", "c@d.test", "s", long)
	require.NoError(t, err)
	_, body, _ := bytes.Cut(msg, []byte("\r\n\r\n"))
	for _, line := range bytes.Split(body, []byte("\r\n")) {
		require.LessOrEqual(t, len(line), 78)
	}
}
