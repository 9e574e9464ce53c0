package codec

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(uint32(v)))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// marshalPriceLevel encodes a PriceLevel as a standalone sub-message.
func marshalPriceLevel(l PriceLevel) []byte {
	var b []byte
	b = appendDouble(b, fieldLevelPrice, l.Price)
	b = appendDouble(b, fieldLevelTotalSize, l.TotalSize)
	b = appendDouble(b, fieldLevelTotalValue, l.TotalValue)
	return b
}

func unmarshalPriceLevel(data []byte) (PriceLevel, error) {
	var l PriceLevel
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return PriceLevel{}, fmt.Errorf("codec: malformed PriceLevel tag")
		}
		data = data[n:]
		switch num {
		case fieldLevelPrice:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return PriceLevel{}, fmt.Errorf("codec: malformed PriceLevel.price")
			}
			l.Price = math.Float64frombits(v)
			data = data[n:]
		case fieldLevelTotalSize:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return PriceLevel{}, fmt.Errorf("codec: malformed PriceLevel.total_size")
			}
			l.TotalSize = math.Float64frombits(v)
			data = data[n:]
		case fieldLevelTotalValue:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return PriceLevel{}, fmt.Errorf("codec: malformed PriceLevel.total_value")
			}
			l.TotalValue = math.Float64frombits(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return PriceLevel{}, fmt.Errorf("codec: malformed PriceLevel unknown field %d", num)
			}
			data = data[n:]
		}
	}
	return l, nil
}

func marshalSnapshotInfo(info SnapshotInfo) []byte {
	var b []byte
	b = appendVarint(b, fieldInfoSequence, uint64(info.Sequence))
	b = appendDouble(b, fieldInfoAskTotalSize, info.AskTotalSize)
	b = appendDouble(b, fieldInfoAskTotalValue, info.AskTotalValue)
	b = appendDouble(b, fieldInfoBidTotalSize, info.BidTotalSize)
	b = appendDouble(b, fieldInfoBidTotalValue, info.BidTotalValue)
	return b
}

func unmarshalSnapshotInfo(data []byte) (SnapshotInfo, error) {
	var info SnapshotInfo
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo tag")
		}
		data = data[n:]
		switch num {
		case fieldInfoSequence:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo.sequence")
			}
			info.Sequence = uint32(v)
			data = data[n:]
		case fieldInfoAskTotalSize:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo.ask_total_size")
			}
			info.AskTotalSize = math.Float64frombits(v)
			data = data[n:]
		case fieldInfoAskTotalValue:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo.ask_total_value")
			}
			info.AskTotalValue = math.Float64frombits(v)
			data = data[n:]
		case fieldInfoBidTotalSize:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo.bid_total_size")
			}
			info.BidTotalSize = math.Float64frombits(v)
			data = data[n:]
		case fieldInfoBidTotalValue:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo.bid_total_value")
			}
			info.BidTotalValue = math.Float64frombits(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return SnapshotInfo{}, fmt.Errorf("codec: malformed SnapshotInfo unknown field %d", num)
			}
			data = data[n:]
		}
	}
	return info, nil
}

// MarshalSnapshot encodes a SnapshotMessage using the protobuf wire format.
func MarshalSnapshot(msg SnapshotMessage) []byte {
	var b []byte
	b = appendString(b, fieldSnapshotType, msg.Type)
	b = appendString(b, fieldSnapshotExchange, msg.Exchange)
	b = appendString(b, fieldSnapshotProductID, msg.ProductID)
	b = appendInt32(b, fieldSnapshotSourceSequence, msg.SourceSequence)
	b = appendVarint(b, fieldSnapshotTime, msg.Time)
	b = appendMessage(b, fieldSnapshotInfo, marshalSnapshotInfo(msg.Info))
	for _, lv := range msg.Bids {
		b = appendMessage(b, fieldSnapshotBids, marshalPriceLevel(lv))
	}
	for _, lv := range msg.Asks {
		b = appendMessage(b, fieldSnapshotAsks, marshalPriceLevel(lv))
	}
	for _, t := range msg.Trades {
		b = appendBytes(b, fieldSnapshotTrades, t)
	}
	for _, t := range msg.Takers {
		b = appendBytes(b, fieldSnapshotTakers, t)
	}
	return b
}

// UnmarshalSnapshot decodes a SnapshotMessage. A malformed input returns an
// error; callers at the façade layer translate that into the boolean false
// the host-facing operations report.
func UnmarshalSnapshot(data []byte) (SnapshotMessage, error) {
	var msg SnapshotMessage
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage tag")
		}
		data = data[n:]
		switch num {
		case fieldSnapshotType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.type")
			}
			msg.Type = s
			data = data[n:]
		case fieldSnapshotExchange:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.exchange")
			}
			msg.Exchange = s
			data = data[n:]
		case fieldSnapshotProductID:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.product_id")
			}
			msg.ProductID = s
			data = data[n:]
		case fieldSnapshotSourceSequence:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.source_sequence")
			}
			msg.SourceSequence = int32(v)
			data = data[n:]
		case fieldSnapshotTime:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.time")
			}
			msg.Time = v
			data = data[n:]
		case fieldSnapshotInfo:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.info")
			}
			info, err := unmarshalSnapshotInfo(inner)
			if err != nil {
				return SnapshotMessage{}, err
			}
			msg.Info = info
			data = data[n:]
		case fieldSnapshotBids:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.bids")
			}
			lv, err := unmarshalPriceLevel(inner)
			if err != nil {
				return SnapshotMessage{}, err
			}
			msg.Bids = append(msg.Bids, lv)
			data = data[n:]
		case fieldSnapshotAsks:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.asks")
			}
			lv, err := unmarshalPriceLevel(inner)
			if err != nil {
				return SnapshotMessage{}, err
			}
			msg.Asks = append(msg.Asks, lv)
			data = data[n:]
		case fieldSnapshotTrades:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.trades")
			}
			msg.Trades = append(msg.Trades, append([]byte(nil), inner...))
			data = data[n:]
		case fieldSnapshotTakers:
			inner, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage.takers")
			}
			msg.Takers = append(msg.Takers, append([]byte(nil), inner...))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return SnapshotMessage{}, fmt.Errorf("codec: malformed SnapshotMessage unknown field %d", num)
			}
			data = data[n:]
		}
	}
	return msg, nil
}

// MarshalLevelUpdate encodes a LevelUpdate using the protobuf wire format.
func MarshalLevelUpdate(msg LevelUpdate) []byte {
	var b []byte
	b = appendString(b, fieldUpdateType, msg.Type)
	b = appendString(b, fieldUpdateExchange, msg.Exchange)
	b = appendString(b, fieldUpdateProductID, msg.ProductID)
	b = appendInt32(b, fieldUpdateSide, msg.Side)
	b = appendDouble(b, fieldUpdatePrice, msg.Price)
	b = appendDouble(b, fieldUpdateSize, msg.Size)
	b = appendInt32(b, fieldUpdateSequence, msg.Sequence)
	b = appendVarint(b, fieldUpdateTime, msg.Time)
	b = appendInt32(b, fieldUpdateCount, msg.Count)
	return b
}

// UnmarshalLevelUpdate decodes a LevelUpdate.
func UnmarshalLevelUpdate(data []byte) (LevelUpdate, error) {
	var msg LevelUpdate
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate tag")
		}
		data = data[n:]
		switch num {
		case fieldUpdateType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.type")
			}
			msg.Type = s
			data = data[n:]
		case fieldUpdateExchange:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.exchange")
			}
			msg.Exchange = s
			data = data[n:]
		case fieldUpdateProductID:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.product_id")
			}
			msg.ProductID = s
			data = data[n:]
		case fieldUpdateSide:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.side")
			}
			msg.Side = int32(v)
			data = data[n:]
		case fieldUpdatePrice:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.price")
			}
			msg.Price = math.Float64frombits(v)
			data = data[n:]
		case fieldUpdateSize:
			v, n := protowire.ConsumeFixed64(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.size")
			}
			msg.Size = math.Float64frombits(v)
			data = data[n:]
		case fieldUpdateSequence:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.sequence")
			}
			msg.Sequence = int32(v)
			data = data[n:]
		case fieldUpdateTime:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.time")
			}
			msg.Time = v
			data = data[n:]
		case fieldUpdateCount:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate.count")
			}
			msg.Count = int32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return LevelUpdate{}, fmt.Errorf("codec: malformed LevelUpdate unknown field %d", num)
			}
			data = data[n:]
		}
	}
	return msg, nil
}
