// Package sops reads SOPS encrypted documents and decrypts their values.
//
// A SOPS document is a JSON or YAML tree where every leaf value is
// encrypted independently with AES-256-GCM under one data key. The data key
// itself is wrapped by one or more key management backends, listed under the
// document's top-level "sops" key.
//
// # Encoded Values
//
// Each encrypted leaf is stored as text:
//
//	ENC[AES256_GCM,data:<base64>,iv:<base64>,tag:<base64>,type:<type>]
//
// ParseValue splits this into ciphertext, nonce and tag. The nonce is 32 bytes
// in documents written by SOPS; 12 byte nonces are accepted as well.
//
// # Authentication
//
// The key path of a leaf, joined with ":" and followed by a trailing ":", is
// bound into the GCM tag as associated data. A top-level key "DADA" is
// authenticated with "DADA:", a nested key b under a with "a:b:". Moving a
// ciphertext to another key therefore fails authentication.
//
// # Candidate Keys
//
// A document may carry several wrapped copies of the data key. Whoever
// decrypts it may only be able to unwrap some of them, so DecryptLeaf tries
// every candidate Cipher in order and returns the first plaintext that
// authenticates. Key identity is only proven by a successful open.
//
// # Usage
//
//	doc, err := sops.Parse(data)
//	if err != nil {
//	    return err
//	}
//	set, err := resolver.Resolve(ctx, doc.Metadata)
//	if err != nil {
//	    return err
//	}
//	result, err := sops.Decrypt(ctx, doc, set.Ciphers, sops.Options{})
package sops
