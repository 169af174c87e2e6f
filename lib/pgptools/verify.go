//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package pgptools

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

type PgpSignature struct {
	Key          *openpgp.Key
	CreationTime time.Time
	Hash         crypto.Hash
}

// Verify a detached PGP signature in "signature" over the document in
// "signed", using keys from "keyring". The signature may be binary or
// ASCII-armored. Returns a value of ErrNoKey if the key cannot be found.
func VerifyDetached(signature, signed io.Reader, keyring openpgp.EntityList) (*PgpSignature, error) {
	blob, err := io.ReadAll(signature)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(blob, []byte("-----BEGIN PGP")) {
		block, err := armor.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, fmt.Errorf("decoding armored signature: %w", err)
		}
		if blob, err = io.ReadAll(block.Body); err != nil {
			return nil, err
		}
	}
	packetReader := packet.NewReader(bytes.NewReader(blob))
	genpkt, err := packetReader.Next()
	if err == io.EOF {
		return nil, errors.New("no PGP signature found")
	} else if err != nil {
		return nil, err
	}
	pkt, ok := genpkt.(*packet.Signature)
	if !ok {
		return nil, errors.New("not a PGP signature")
	}
	if pkt.IssuerKeyId == nil {
		return nil, errors.New("missing keyId in signature")
	}
	// find key
	keys := keyring.KeysById(*pkt.IssuerKeyId)
	if len(keys) == 0 {
		return nil, ErrNoKey(*pkt.IssuerKeyId)
	}
	// calculate hash
	if !pkt.Hash.Available() {
		return nil, errors.New("signature uses unknown digest")
	}
	d := pkt.Hash.New()
	if _, err := io.Copy(d, signed); err != nil {
		return nil, err
	}
	// check signature
	err = keys[0].PublicKey.VerifySignature(d, pkt)
	return &PgpSignature{&keys[0], pkt.CreationTime, pkt.Hash}, err
}

// Verify a cleartext PGP signature in "signature" using keys from "keyring".
// Returns a value of ErrNoKey if the key cannot be found. If "cleartext" is
// not nil, then write the embedded cleartext as it is verified.
func VerifyClearSign(signature io.Reader, cleartext io.Writer, keyring openpgp.EntityList) (*PgpSignature, error) {
	blob, err := io.ReadAll(signature)
	if err != nil {
		return nil, err
	}
	csblock, rest := clearsign.Decode(blob)
	if csblock == nil {
		return nil, errors.New("malformed clearsign signature")
	} else if bytes.Contains(rest, []byte("-----BEGIN")) {
		return nil, errors.New("clearsign contains multiple documents")
	}
	if cleartext != nil {
		if _, err := cleartext.Write(csblock.Bytes); err != nil {
			return nil, err
		}
	}
	return VerifyDetached(csblock.ArmoredSignature.Body, bytes.NewReader(csblock.Bytes), keyring)
}

// Returned by Verify* functions when the key used for signing is not in the
// keyring. The value is the KeyID of the missing key.
type ErrNoKey uint64

func (e ErrNoKey) Error() string {
	return fmt.Sprintf("keyId %x not found in keyring", uint64(e))
}
