// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"anubis-dossier/internal/record"
)

// Protection holds the document encryption settings applied after assembly.
type Protection struct {
	UserPassword  string
	OwnerPassword string
	AllowPrint    bool
	AllowCopy     bool
	AllowModify   bool
}

// Encrypt applies AES-256 encryption and the configured permission mask to
// a rendered artifact. The user password opens the document under the
// permission mask; the owner password opens it with full rights. An empty
// owner password falls back to the user password.
func Encrypt(artifact *record.RenderedArtifact, prot Protection) (*record.RenderedArtifact, error) {
	if prot.UserPassword == "" {
		return nil, &Error{Op: "encrypt", Message: "user password required"}
	}
	ownerPW := prot.OwnerPassword
	if ownerPW == "" {
		ownerPW = prot.UserPassword
	}

	conf := model.NewDefaultConfiguration()
	conf.UserPW = prot.UserPassword
	conf.OwnerPW = ownerPW
	conf.EncryptUsingAES = true
	conf.EncryptKeyLength = 256
	conf.Permissions = permissionMask(prot)

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(artifact.Data), &out, conf); err != nil {
		return nil, &Error{Op: "encrypt", Message: "encrypting document", Cause: err}
	}

	data := out.Bytes()
	sum := sha256.Sum256(data)
	return &record.RenderedArtifact{
		Data:      data,
		SHA256:    hex.EncodeToString(sum[:]),
		Encrypted: true,
		Pages:     artifact.Pages,
	}, nil
}

// permissionMask maps the coarse allow flags onto the PDF permission bits.
func permissionMask(prot Protection) model.PermissionFlags {
	perms := model.PermissionsNone
	if prot.AllowPrint {
		perms |= model.PermissionPrintRev2 | model.PermissionPrintRev3
	}
	if prot.AllowCopy {
		perms |= model.PermissionExtract | model.PermissionExtractRev3
	}
	if prot.AllowModify {
		perms |= model.PermissionModify | model.PermissionModAnnFillForm | model.PermissionFillRev3 | model.PermissionAssembleRev3
	}
	return perms
}
