package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	authErr error
	sendErr error
	auths   int
	sent    []Message
}

func (f *fakeBackend) Authenticate(ctx context.Context) error {
	f.auths++
	return f.authErr
}

func (f *fakeBackend) Send(ctx context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func TestSelectProvider(t *testing.T) {
	tests := []struct {
		sender   string
		expected Provider
	}{
		{"user@outlook.com", ProviderOutlook},
		{"user@hotmail.co.uk", ProviderOutlook},
		{"user@live.jp", ProviderOutlook},
		{"user@OUTLOOK.DE", ProviderOutlook},
		{"user@gmail.com", ProviderGmail},
		{" user@googlemail.gmail.com ", ProviderGmail},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			p, err := SelectProvider(tt.sender)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestSelectProvider_Unsupported(t *testing.T) {
	for _, sender := range []string{"", "user@example.com", "no-at-sign", "a@b@gmail.com", "me"} {
		t.Run(sender, func(t *testing.T) {
			_, err := SelectProvider(sender)
			assert.True(t, errors.Is(err, ErrUnsupportedProvider))
		})
	}
}

func TestDispatcher_Send(t *testing.T) {
	gmail := &fakeBackend{}
	outlook := &fakeBackend{}
	d := New()
	d.Register(ProviderGmail, gmail)
	d.Register(ProviderOutlook, outlook)

	msg := Message{From: "a@gmail.com", To: "b@example.com", Subject: "Hi", HTMLBody: "<p>x</p>"}
	p, err := d.Send(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, ProviderGmail, p)
	assert.Equal(t, []Message{msg}, gmail.sent)
	assert.Empty(t, outlook.sent)
	assert.Equal(t, []Provider{ProviderOutlook, ProviderGmail}, d.Providers())
}

func TestDispatcher_UnsupportedSendsNothing(t *testing.T) {
	gmail := &fakeBackend{}
	d := New()
	d.Register(ProviderGmail, gmail)

	_, err := d.Send(context.Background(), Message{From: "a@example.com"})
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))
	assert.Zero(t, gmail.auths)

	_, err = d.Send(context.Background(), Message{From: "a@outlook.com"})
	assert.True(t, errors.Is(err, ErrUnsupportedProvider), "no backend registered")
}

func TestDispatcher_Failures(t *testing.T) {
	authFail := &fakeBackend{authErr: errors.New("denied")}
	d := New()
	d.Register(ProviderOutlook, authFail)

	_, err := d.Send(context.Background(), Message{From: "a@live.com"})
	assert.True(t, errors.Is(err, ErrSendFailure))
	assert.Empty(t, authFail.sent)

	sendFail := &fakeBackend{sendErr: errors.New("502")}
	d.Register(ProviderOutlook, sendFail)
	_, err = d.Send(context.Background(), Message{From: "a@live.com"})
	assert.True(t, errors.Is(err, ErrSendFailure))
	assert.Len(t, sendFail.sent, 1, "no retry")
}

func TestDispatcher_SendVia(t *testing.T) {
	smtp := &fakeBackend{}
	d := New()
	d.Register(ProviderSMTP, smtp)

	p, err := d.SendVia(context.Background(), Message{From: "a@example.com"}, ProviderSMTP)
	require.NoError(t, err)
	assert.Equal(t, ProviderSMTP, p)
	assert.Len(t, smtp.sent, 1)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider(" SMTP ")
	require.NoError(t, err)
	assert.Equal(t, ProviderSMTP, p)

	p, err = ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, Provider(""), p)

	_, err = ParseProvider("yahoo")
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))
}
