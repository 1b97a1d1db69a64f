package rpc

import (
	"net/http"

	"lessonchain/crypto"
	"lessonchain/native/progress"
)

func participantString(addr [20]byte) string {
	return crypto.FromRaw(crypto.ParticipantPrefix, addr).String()
}

func programString(addr [20]byte) string {
	return crypto.FromRaw(crypto.ProgramPrefix, addr).String()
}

func tokenString(addr [20]byte) string {
	return crypto.FromRaw(crypto.TokenPrefix, addr).String()
}

// signedRecord resolves the record a signed call targets, defaulting to the
// caller's own derived record.
func (s *Server) signedRecord(caller [20]byte, record string) ([20]byte, *RPCError) {
	if record == "" {
		addr, _, err := s.node.Progress().RecordAddress(caller)
		if err != nil {
			return [20]byte{}, mapError(err)
		}
		return addr, nil
	}
	addr, err := parseAddress(record, crypto.ProgramPrefix)
	if err != nil {
		return [20]byte{}, invalidParams("invalid record address", err.Error())
	}
	return addr, nil
}

func (s *Server) handleProgressAddress(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params AddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	participant, err := parseAddress(params.Participant, crypto.ParticipantPrefix)
	if err != nil {
		return nil, invalidParams("invalid participant", err.Error())
	}
	addr, bump, err := s.node.Progress().RecordAddress(participant)
	if err != nil {
		return nil, mapError(err)
	}
	return AddressResult{Address: programString(addr), Bump: bump}, nil
}

func (s *Server) handleProgressInitialize(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params InitializeParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := authenticate(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	participant := caller
	if params.Participant != "" {
		addr, err := parseAddress(params.Participant, crypto.ParticipantPrefix)
		if err != nil {
			return nil, invalidParams("invalid participant", err.Error())
		}
		if addr != caller {
			return nil, mapError(progress.ErrUnauthorized)
		}
		participant = addr
	}
	payer, rpcErr := authorizePayer(req, caller, params.Payer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	record, err := s.node.Progress().Initialize(participant, payer)
	if err != nil {
		return nil, mapError(err)
	}
	return InitializeResult{Address: programString(record)}, nil
}

func (s *Server) handleProgressCompleteLesson(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params CompleteLessonParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.LessonID == nil {
		return nil, invalidParams("lessonId required", nil)
	}
	caller, rpcErr := authenticate(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	record, rpcErr := s.signedRecord(caller, params.Record)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.Progress().CompleteLesson(caller, record, *params.LessonID); err != nil {
		return nil, mapError(err)
	}
	return CompleteLessonResult{OK: true}, nil
}

func (s *Server) handleProgressMintReward(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params MintRewardParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.LessonID == nil {
		return nil, invalidParams("lessonId required", nil)
	}
	mint, err := parseAddress(params.Mint, crypto.TokenPrefix)
	if err != nil {
		return nil, invalidParams("invalid mint", err.Error())
	}
	caller, rpcErr := authenticate(req)
	if rpcErr != nil {
		return nil, rpcErr
	}
	record, rpcErr := s.signedRecord(caller, params.Record)
	if rpcErr != nil {
		return nil, rpcErr
	}
	payer, rpcErr := authorizePayer(req, caller, params.Payer)
	if rpcErr != nil {
		return nil, rpcErr
	}
	result, err := s.node.Progress().MintReward(progress.MintParams{
		Caller:   caller,
		Payer:    payer,
		Record:   record,
		LessonID: *params.LessonID,
		URI:      params.URI,
		Name:     params.Name,
		Symbol:   params.Symbol,
		Mint:     mint,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return MintRewardResult{Mint: tokenString(result.Mint), Metadata: programString(result.Metadata)}, nil
}

func (s *Server) handleProgressGet(_ *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	var params ProgressQueryParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	var (
		rec  *progress.ProgressRecord
		addr [20]byte
		err  error
	)
	switch {
	case params.Record != "":
		addr, err = parseAddress(params.Record, crypto.ProgramPrefix)
		if err != nil {
			return nil, invalidParams("invalid record address", err.Error())
		}
		rec, err = s.node.Progress().Progress(addr)
	case params.Participant != "":
		participant, perr := parseAddress(params.Participant, crypto.ParticipantPrefix)
		if perr != nil {
			return nil, invalidParams("invalid participant", perr.Error())
		}
		rec, addr, err = s.node.Progress().ProgressOf(participant)
	default:
		return nil, invalidParams("record or participant required", nil)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return ProgressResult{
		Address:          programString(addr),
		Owner:            participantString(rec.Owner),
		CompletedLessons: rec.CompletedLessons,
		NftsClaimed:      rec.NftsClaimed,
		Bump:             rec.Bump,
	}, nil
}

func (s *Server) handleProgressHistory(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if s.history == nil {
		return nil, newError(http.StatusNotImplemented, codeServerError, "history indexer not configured", nil)
	}
	var params HistoryParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		return nil, rpcErr
	}
	participant, err := parseAddress(params.Participant, crypto.ParticipantPrefix)
	if err != nil {
		return nil, invalidParams("invalid participant", err.Error())
	}
	entries, err := s.history.History(r.Context(), participant, params.Limit)
	if err != nil {
		return nil, mapError(err)
	}
	return HistoryResult{Participant: participantString(participant), Events: entries}, nil
}
