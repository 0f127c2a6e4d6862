package core

import (
	"fmt"

	"github.com/tsawler/vellum/internal/filters"
)

// Decode returns the stream payload with the Filter chain declared in the
// dictionary undone. The result is cached. DCTDecode and JPXDecode payloads
// are returned as stored, since their pixel decoding is an image concern.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}

	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}

	paramsObj := s.Dict.Get("DecodeParms")

	var chain []Name
	var params []Dict
	switch v := filterObj.(type) {
	case Name:
		chain = []Name{v}
		params = []Dict{paramsToDict(paramsObj)}
	case Array:
		for i, elem := range v {
			name, ok := elem.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is not a name: %T", i, elem)
			}
			chain = append(chain, name)
			if paramsArr, ok := paramsObj.(Array); ok && i < len(paramsArr) {
				params = append(params, paramsToDict(paramsArr[i]))
			} else {
				params = append(params, paramsToDict(paramsObj))
			}
		}
	default:
		return nil, fmt.Errorf("invalid Filter type: %T", filterObj)
	}

	data := s.Data
	for i, name := range chain {
		var err error
		data, err = decodeWithFilter(data, string(name), params[i])
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	s.decoded = data
	return data, nil
}

// NewFlateStream builds a stream whose payload is raw compressed with
// FlateDecode. The dictionary is extended with /Filter and /Length.
func NewFlateStream(dict Dict, raw []byte) (*Stream, error) {
	compressed, err := filters.FlateEncode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress stream: %w", err)
	}
	if dict == nil {
		dict = make(Dict)
	}
	dict.Set("Filter", Name("FlateDecode"))
	dict.Set("Length", Int(len(compressed)))
	return &Stream{Dict: dict, Data: compressed, decoded: raw}, nil
}

// NewRawStream builds a stream holding raw as stored, setting /Length. When
// the dictionary declares a /Filter, Decode still runs the filter chain.
func NewRawStream(dict Dict, raw []byte) *Stream {
	if dict == nil {
		dict = make(Dict)
	}
	dict.Set("Length", Int(len(raw)))
	s := &Stream{Dict: dict, Data: raw}
	if !dict.Has("Filter") {
		s.decoded = raw
	}
	return s
}

func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "DCTDecode", "DCT", "JPXDecode":
		// Compressed image payload; kept as stored.
		return data, nil
	case "LZWDecode", "LZW", "RunLengthDecode", "RL", "CCITTFaxDecode", "CCF", "JBIG2Decode", "Crypt":
		return nil, fmt.Errorf("unsupported filter: %s", filterName)
	default:
		return nil, fmt.Errorf("unknown filter: %s", filterName)
	}
}

func paramsToDict(obj Object) Dict {
	if dict, ok := obj.(Dict); ok {
		return dict
	}
	return nil
}

// dictToParams translates PDF parameter objects into plain Go values for the
// filters package.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params)
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case Name:
			params[k] = string(obj)
		case String:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
