package token

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownMethod   = errors.New("unknown token method")
	ErrShortCalldata   = errors.New("calldata shorter than a selector")
	ErrUnexpectedValue = errors.New("unexpected return value")
)

// Method resolves a 4-byte selector to its method name.
func Method(selector []byte) (string, error) {
	if len(selector) < selectorLength {
		return "", ErrShortCalldata
	}

	m, err := tokenABI.MethodById(selector[:selectorLength])
	if err != nil {
		return "", errors.Wrapf(ErrUnknownMethod, "selector %x", selector[:selectorLength])
	}

	return m.Name, nil
}

// Decode unpacks the return data of method.
func Decode(method string, data []byte) ([]interface{}, error) {
	m, ok := tokenABI.Methods[method]
	if !ok {
		return nil, errors.Wrap(ErrUnknownMethod, method)
	}

	values, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s output", method)
	}

	if len(values) != len(m.Outputs) {
		return nil, errors.Wrapf(ErrUnexpectedValue, "%s returned %d values", method, len(values))
	}

	return values, nil
}

// DecodeCall splits calldata into its method name and input arguments.
func DecodeCall(data []byte) (string, []interface{}, error) {
	name, err := Method(data)
	if err != nil {
		return "", nil, err
	}

	args, err := tokenABI.Methods[name].Inputs.Unpack(data[selectorLength:])
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to unpack %s input", name)
	}

	return name, args, nil
}

// EncodeResult packs return values of method, the inverse of Decode.
func EncodeResult(method string, values ...interface{}) ([]byte, error) {
	m, ok := tokenABI.Methods[method]
	if !ok {
		return nil, errors.Wrap(ErrUnknownMethod, method)
	}

	data, err := m.Outputs.Pack(values...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s output", method)
	}

	return data, nil
}
