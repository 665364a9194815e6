package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/nerox/internal/modules/music_player/application/playback"
	"github.com/sglre6355/nerox/internal/modules/music_player/domain"
)

const DefaultPageSize = 10

// Positions in the queue inputs and outputs are 1-indexed over the upcoming
// tracks: position 1 is the track that plays next.

// QueueListInput contains the input for the QueueList use case.
type QueueListInput struct {
	GuildID               snowflake.ID
	Page                  int          // 1-indexed page number
	PageSize              int          // Items per page (optional, defaults to 10)
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueListOutput contains the result of the QueueList use case.
type QueueListOutput struct {
	CurrentTrack  *domain.Track
	Tracks        []*domain.Track
	StartPosition int // position of Tracks[0]
	TotalTracks   int
	CurrentPage   int
	TotalPages    int
	TotalDuration time.Duration
	LoopMode      string
}

// QueueRemoveInput contains the input for the QueueRemove use case.
type QueueRemoveInput struct {
	GuildID               snowflake.ID
	Position              int
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueRemoveOutput contains the result of the QueueRemove use case.
type QueueRemoveOutput struct {
	RemovedTrack *domain.Track
}

// QueueMoveInput contains the input for the QueueMove use case.
type QueueMoveInput struct {
	GuildID               snowflake.ID
	From                  int
	To                    int
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueMoveOutput contains the result of the QueueMove use case.
type QueueMoveOutput struct {
	MovedTrack *domain.Track
}

// QueueShuffleInput contains the input for the QueueShuffle use case.
type QueueShuffleInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueShuffleOutput contains the result of the QueueShuffle use case.
type QueueShuffleOutput struct {
	ShuffledCount int
}

// QueueClearInput contains the input for the QueueClear use case.
type QueueClearInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueClearOutput contains the result of the QueueClear use case.
type QueueClearOutput struct {
	ClearedCount int
}

// QueueSkipToInput contains the input for the QueueSkipTo use case.
type QueueSkipToInput struct {
	GuildID               snowflake.ID
	Position              int
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// QueueSkipToOutput contains the result of the QueueSkipTo use case.
type QueueSkipToOutput struct {
	Track *domain.Track
}

// QueueService handles queue operations.
type QueueService struct {
	players PlayerRegistry
}

// NewQueueService creates a new QueueService.
func NewQueueService(players PlayerRegistry) *QueueService {
	return &QueueService{players: players}
}

// List returns the current queue with pagination.
func (q *QueueService) List(input QueueListInput) (*QueueListOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	pageSize := input.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}

	snapshot := player.Queue()
	upcoming := snapshot.Upcoming

	totalTracks := len(upcoming)
	totalPages := max((totalTracks+pageSize-1)/pageSize, 1)
	page = min(page, totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, totalTracks)

	var pageTracks []*domain.Track
	if start < totalTracks {
		pageTracks = upcoming[start:end]
	}

	return &QueueListOutput{
		CurrentTrack:  snapshot.Current,
		Tracks:        pageTracks,
		StartPosition: start + 1,
		TotalTracks:   totalTracks,
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalDuration: snapshot.TotalDuration,
		LoopMode:      player.LoopMode().String(),
	}, nil
}

// Remove removes the upcoming track at the given position.
func (q *QueueService) Remove(input QueueRemoveInput) (*QueueRemoveOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	var removed *domain.Track
	var empty bool
	player.WithQueue(func(queue *domain.Queue) {
		if queue.Len() == 0 {
			empty = true
			return
		}
		removed = queue.Remove(input.Position - 1)
	})

	if empty {
		return nil, ErrQueueEmpty
	}
	if removed == nil {
		return nil, ErrInvalidPosition
	}
	return &QueueRemoveOutput{RemovedTrack: removed}, nil
}

// Move relocates an upcoming track to another position.
func (q *QueueService) Move(input QueueMoveInput) (*QueueMoveOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	var moved *domain.Track
	var empty bool
	player.WithQueue(func(queue *domain.Queue) {
		if queue.Len() == 0 {
			empty = true
			return
		}
		track := queue.At(input.From - 1)
		if queue.Move(input.From-1, input.To-1) {
			moved = track
		}
	})

	if empty {
		return nil, ErrQueueEmpty
	}
	if moved == nil {
		return nil, ErrInvalidPosition
	}
	return &QueueMoveOutput{MovedTrack: moved}, nil
}

// Shuffle randomly reorders the upcoming tracks.
func (q *QueueService) Shuffle(input QueueShuffleInput) (*QueueShuffleOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	var count int
	player.WithQueue(func(queue *domain.Queue) {
		count = queue.Len()
		if count > 1 {
			queue.Shuffle()
		}
	})

	if count == 0 {
		return nil, ErrQueueEmpty
	}
	return &QueueShuffleOutput{ShuffledCount: count}, nil
}

// Clear removes every upcoming track. The current track keeps playing.
func (q *QueueService) Clear(input QueueClearInput) (*QueueClearOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	var count int
	player.WithQueue(func(queue *domain.Queue) {
		count = queue.Len()
		for queue.Len() > 0 {
			queue.Remove(queue.Len() - 1)
		}
	})

	if count == 0 {
		return nil, ErrNothingToClear
	}
	return &QueueClearOutput{ClearedCount: count}, nil
}

// SkipTo jumps to the upcoming track at the given position.
func (q *QueueService) SkipTo(ctx context.Context, input QueueSkipToInput) (*QueueSkipToOutput, error) {
	player, err := connectedPlayer(q.players, input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	track, err := player.SkipTo(ctx, input.Position-1)
	if errors.Is(err, playback.ErrInvalidIndex) {
		return nil, ErrInvalidPosition
	}
	if err != nil {
		return nil, err
	}
	return &QueueSkipToOutput{Track: track}, nil
}
