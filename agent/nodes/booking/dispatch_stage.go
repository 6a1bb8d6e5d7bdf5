package bookingnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/looktown/booking-assistant/agent/contract"
	statex "github.com/looktown/booking-assistant/agent/state"
)

// maxStageHops bounds how many stages may run within one turn. Two is the
// normal maximum (slot verification followed by contact collection); the
// third hop absorbs a no-op contact pass.
const maxStageHops = 3

const (
	apologyReply       = "Извините, произошла ошибка. Попробуйте, пожалуйста, ещё раз чуть позже."
	alreadyBookedReply = "Ваша запись уже оформлена. Если хотите записаться ещё раз или что-то изменить, просто напишите."
)

// DispatchStages runs the stage funnel until a stage produces a client-facing
// reply, raises a manager alert, or routing reaches the end. Stage panics and
// errors degrade to an apology without touching the booking.
func DispatchStages(
	ctx context.Context,
	in *GraphState,
	registry contractx.Registry,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Session.Booking.Finalized() {
		in.Reply = alreadyBookedReply
		return in, nil
	}

	stage := Route(in.Session.Booking)

	for hop := 0; hop < maxStageHops; hop++ {
		if stage == StageEnd {
			break
		}
		in.Hops = hop + 1

		handler, err := handlerFor(stage, registry)
		if err != nil {
			return nil, err
		}

		req := contractx.StageRequest{
			Message: in.Text,
			History: in.Session.RecentTurns(10),
			Booking: in.Session.Booking,
		}

		resp, err := safeHandle(ctx, stage, handler, req)
		if err != nil {
			if esc, ok := contractx.AsEscalation(err); ok {
				in.Reply = esc.Reply
				in.ManagerAlert = esc.Alert
				return in, nil
			}
			log.Error().Err(err).
				Str("session_id", in.SessionID).
				Str("stage", string(stage)).
				Msg("stage handler failed")
			in.Reply = apologyReply
			return in, nil
		}

		in.Session.Booking = statex.Merge(in.Session.Booking, resp.Updates)
		in.ToolCalls = append(in.ToolCalls, resp.ToolCalls...)

		if resp.ManagerAlert != "" {
			in.Reply = resp.Reply
			in.ManagerAlert = resp.ManagerAlert
			return in, nil
		}
		if resp.Reply != "" {
			in.Reply = resp.Reply
			return in, nil
		}

		if stage == contractx.StageTypeSlotManager {
			stage = RouteAfterSlot(in.Session.Booking)
		} else {
			stage = Route(in.Session.Booking)
		}
	}

	if in.Reply == "" {
		log.Error().
			Str("session_id", in.SessionID).
			Int("hops", in.Hops).
			Err(contractx.ErrStageLoop).
			Msg("turn produced no reply")
		in.Reply = apologyReply
	}
	return in, nil
}

func handlerFor(stage contractx.StageType, registry contractx.Registry) (contractx.StageHandler, error) {
	switch stage {
	case contractx.StageTypeServiceManager:
		return registry.ServiceManager(), nil
	case contractx.StageTypeSlotManager:
		return registry.SlotManager(), nil
	case contractx.StageTypeContactCollector:
		return registry.ContactCollector(), nil
	case contractx.StageTypeFinalizer:
		return registry.Finalizer(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported stage=%q", contractx.ErrValidation, stage)
	}
}

func safeHandle(
	ctx context.Context,
	stage contractx.StageType,
	handler contractx.StageHandler,
	req contractx.StageRequest,
) (resp contractx.StageResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", stage, r)
		}
	}()
	return handler.Handle(ctx, req)
}
