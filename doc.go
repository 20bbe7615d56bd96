// Package vaultsandbox is the Go client for the VaultSandbox email
// testing gateway.
//
// Inboxes are end-to-end encrypted: the client generates an ML-KEM-768
// key pair locally, registers only the public half, and decrypts every
// email on this machine after verifying the gateway's ML-DSA-65
// signature. The gateway never sees plaintext content.
//
// Typical CI usage:
//
//	client, err := vaultsandbox.New(os.Getenv("VSB_API_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	inbox, err := client.CreateInbox(ctx, vaultsandbox.WithTTL(time.Hour))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Trigger the email under test, then:
//	email, err := inbox.WaitForEmail(ctx,
//		vaultsandbox.WithSubject("Verify your account"),
//		vaultsandbox.WithWaitTimeout(30*time.Second))
//
// New email is delivered over a server-sent-events push channel with
// automatic reconciliation after reconnects, or by pure polling
// (WithDeliveryStrategy). Either way each email surfaces exactly once on
// the inbox's wait/watch stream.
package vaultsandbox
