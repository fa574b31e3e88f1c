package mymail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Run("without api-key mails are logged", func(t *testing.T) {
		mailer := New("", "shop@example.com")
		_, ok := mailer.(*logMailer)
		assert.True(t, ok)
		assert.NoError(t, mailer.Send(context.TODO(), Mail{To: "a@example.com", Subject: "hi", Body: "body"}))
	})

	t.Run("with api-key mails go through sendgrid", func(t *testing.T) {
		mailer := New("SG.key", "shop@example.com")
		_, ok := mailer.(*sendgridMailer)
		assert.True(t, ok)
	})

	t.Run("sendgrid refuses empty recipient", func(t *testing.T) {
		err := New("SG.key", "shop@example.com").Send(context.TODO(), Mail{Subject: "hi"})
		assert.Error(t, err)
	})
}
