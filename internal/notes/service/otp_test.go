package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
)

func TestSignupThenVerify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	id, err := e.otp.IssueSignup(ctx, SignupInput{Email: "  Ada@Example.com ", Name: "Ada", DOB: "1990-01-01"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	code := e.mailer.last(t, "ada@example.com")
	e.clock.Advance(domain.OTPTTL - time.Second)

	sess, err := e.otp.Verify(ctx, "ada@example.com", code)
	require.NoError(t, err)
	require.Equal(t, id, sess.User.ID)
	require.Equal(t, "Ada", sess.User.Name)
	require.Equal(t, "1990-01-01", sess.User.DOB)
	require.Nil(t, sess.User.OTPCode)

	claims := verifySession(t, e.clock, sess.Token, id)
	require.Equal(t, []string{jwtx.AMROTP}, claims.AMR)
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"missing email", SignupInput{Name: "Ada", DOB: "1990"}, domain.ErrMissingFields},
		{"missing name", SignupInput{Email: "a@example.com", DOB: "1990"}, domain.ErrMissingFields},
		{"blank dob", SignupInput{Email: "a@example.com", Name: "Ada", DOB: "  "}, domain.ErrMissingFields},
		{"malformed email", SignupInput{Email: "not-an-email", Name: "Ada", DOB: "1990"}, domain.ErrInvalidEmail},
		{"display name form", SignupInput{Email: "Ada <a@example.com>", Name: "Ada", DOB: "1990"}, domain.ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.otp.IssueSignup(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
	require.Zero(t, e.mailer.count())
}

func TestSignupEmailInUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.otp.IssueSignup(ctx, SignupInput{Email: "ada@example.com", Name: "Ada", DOB: "1990"})
	require.NoError(t, err)

	_, err = e.otp.IssueSignup(ctx, SignupInput{Email: "ADA@example.com", Name: "Other", DOB: "1991"})
	require.ErrorIs(t, err, domain.ErrEmailInUse)
	require.Equal(t, 1, e.mailer.count())
}

func TestSignupMailFailure(t *testing.T) {
	e := newEnv(t)
	e.mailer.err = errors.New("smtp down")

	_, err := e.otp.IssueSignup(context.Background(), SignupInput{Email: "ada@example.com", Name: "Ada", DOB: "1990"})
	require.Error(t, err)
	require.Equal(t, domain.KindDependency, domain.KindOf(err))
	require.ErrorContains(t, err, "smtp down")
}

func TestVerifyAfterWindowFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.otp.IssueSignup(ctx, SignupInput{Email: "ada@example.com", Name: "Ada", DOB: "1990"})
	require.NoError(t, err)
	code := e.mailer.last(t, "ada@example.com")

	e.clock.Advance(domain.OTPTTL)
	_, err = e.otp.Verify(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
	require.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestVerifyConsumesCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.otp.IssueSignup(ctx, SignupInput{Email: "ada@example.com", Name: "Ada", DOB: "1990"})
	require.NoError(t, err)
	code := e.mailer.last(t, "ada@example.com")

	_, err = e.otp.Verify(ctx, "ada@example.com", code)
	require.NoError(t, err)
	_, err = e.otp.Verify(ctx, "ada@example.com", code)
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestSecondLoginInvalidatesFirstCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ada@example.com")

	require.NoError(t, e.otp.IssueSignin(ctx, "ada@example.com"))
	first := e.mailer.last(t, "ada@example.com")
	require.NoError(t, e.otp.IssueSignin(ctx, "ada@example.com"))
	second := e.mailer.last(t, "ada@example.com")
	require.NotEqual(t, first, second)

	_, err := e.otp.Verify(ctx, "ada@example.com", first)
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	_, err = e.otp.Verify(ctx, "ada@example.com", second)
	require.NoError(t, err)
}

func TestSigninErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.otp.IssueSignin(ctx, " ")
	require.ErrorIs(t, err, domain.ErrEmailRequired)

	err = e.otp.IssueSignin(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrUnknownUser)
	require.Equal(t, "Invalid credentials", domain.MessageOf(err))
	require.Zero(t, e.mailer.count())
}

func TestVerifyErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "ada@example.com")

	_, err := e.otp.Verify(ctx, "", "123456")
	require.ErrorIs(t, err, domain.ErrOTPRequired)
	_, err = e.otp.Verify(ctx, "ada@example.com", "")
	require.ErrorIs(t, err, domain.ErrOTPRequired)

	// No pending code after the signup code was used.
	_, err = e.otp.Verify(ctx, "ada@example.com", "111111")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	_, err = e.otp.Verify(ctx, "ghost@example.com", "111111")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)

	require.NoError(t, e.otp.IssueSignin(ctx, "ada@example.com"))
	_, err = e.otp.Verify(ctx, "ada@example.com", "000000")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}
