/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package format

import (
	"fmt"

	"github.com/icon-project/btp2/common/errors"
)

const (
	ErrorCodeUnknownUserDefinedType errors.Code = errors.CodeGeneral + iota
	ErrorCodeAllocationNotFound
	ErrorCodeMalformedIdentifier
	ErrorCodeUnsupported
	ErrorCodeInvalidValue
	ErrorCodeNotFoundContract
	ErrorCodeNotFoundEntry
	ErrorCodeEncode
)

// UnknownUserDefinedTypeError is raised when a struct, enum or contract id
// cannot be resolved against the user-defined type table.
type UnknownUserDefinedTypeError struct {
	ID         int
	TypeString string
}

func (e *UnknownUserDefinedTypeError) Error() string {
	return fmt.Sprintf("unknown user-defined type id:%d type:%s", e.ID, e.TypeString)
}

func (e *UnknownUserDefinedTypeError) ErrorCode() errors.Code {
	return ErrorCodeUnknownUserDefinedType
}

func NewUnknownUserDefinedTypeError(id int, t Type) *UnknownUserDefinedTypeError {
	s := ""
	if t != nil {
		s = TypeString(t)
	}
	return &UnknownUserDefinedTypeError{ID: id, TypeString: s}
}
