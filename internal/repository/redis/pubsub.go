package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShowtimesPubSub broadcasts committed showtime changes to every instance.
// A nil *ShowtimesPubSub publishes nothing.
type ShowtimesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewShowtimesPubSub(rdb *redis.Client) *ShowtimesPubSub {
	return &ShowtimesPubSub{
		rdb:     rdb,
		channel: ChannelShowtimesChanged(),
	}
}

type ShowtimeChangedMsg struct {
	Type       string `json:"type"`
	ShowtimeID int64  `json:"showtime_id"`
	MovieID    int64  `json:"movie_id"`
	TsUnix     int64  `json:"ts_unix"`
}

func (p *ShowtimesPubSub) PublishShowtimeChanged(ctx context.Context, showtimeID, movieID int64) error {
	if p == nil {
		return nil
	}

	msg := ShowtimeChangedMsg{
		Type:       "showtime_changed",
		ShowtimeID: showtimeID,
		MovieID:    movieID,
		TsUnix:     time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *ShowtimesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, msg ShowtimeChangedMsg)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev ShowtimeChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.ShowtimeID != 0 {
				handler(ctx, ev)
			}
		}
	}
}
