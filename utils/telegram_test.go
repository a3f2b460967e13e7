package utils

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBotToken = "12345:TEST_TOKEN"

func signedInitData(t *testing.T, userJSON string) string {
	t.Helper()
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	v.Set("query_id", "AAH_test")
	if userJSON != "" {
		v.Set("user", userJSON)
	}
	return SignInitData(v, testBotToken)
}

func TestValidateInitDataRoundTrip(t *testing.T) {
	initData := signedInitData(t, `{"id":42,"first_name":"Mario","username":"mario","language_code":"ro"}`)

	user, err := ValidateInitData(initData, testBotToken)
	require.NoError(t, err)
	require.Equal(t, int64(42), user.ID)
	require.Equal(t, "Mario", user.FirstName)
	require.Equal(t, "mario", user.Username)
	require.Equal(t, "ro", user.LanguageCode)
}

func TestValidateInitDataWrongToken(t *testing.T) {
	initData := signedInitData(t, `{"id":42,"first_name":"Mario"}`)
	_, err := ValidateInitData(initData, "other:TOKEN")
	require.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitDataTampered(t *testing.T) {
	initData := signedInitData(t, `{"id":42,"first_name":"Mario"}`)
	tampered := strings.Replace(initData, "auth_date=1700000000", "auth_date=1700009999", 1)
	_, err := ValidateInitData(tampered, testBotToken)
	require.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitDataMissingHash(t *testing.T) {
	_, err := ValidateInitData("auth_date=1700000000&user=%7B%7D", testBotToken)
	require.ErrorIs(t, err, ErrInitDataInvalid)
}

func TestValidateInitDataMissingUser(t *testing.T) {
	initData := signedInitData(t, "")
	_, err := ValidateInitData(initData, testBotToken)
	require.ErrorIs(t, err, ErrInitDataNoUser)
}
