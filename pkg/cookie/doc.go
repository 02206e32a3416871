// Package cookie signs cookie values.
//
//	signer, err := cookie.NewSigner(os.Getenv("SESSION_SECRET"))
//	if err != nil {
//		return err
//	}
//	value := signer.Sign(sessionID)
//	id, err := signer.Verify(value) // ErrBadSig when tampered with
package cookie
