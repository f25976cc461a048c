package dispatch

// Sender performs exactly one send. Status mutation is the caller's
// job, never the sender's.
type Sender interface {
	Send(p *Prepared) error
}

// SMTPSender dials the prepared backend and sends over SMTP. Failures
// come back typed via classify.
type SMTPSender struct{}

func (SMTPSender) Send(p *Prepared) error {
	if err := p.Dialer.DialAndSend(p.Msg); err != nil {
		return classify(err)
	}
	return nil
}
