package models

// Telegram Bot API update payload shapes. Only the fields the pipeline reads
// are modeled; everything else passes through as part of the raw update when
// forwarding.

type Update struct {
	UpdateID          int64    `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	EditedMessage     *Message `json:"edited_message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// Content returns the message variant carried by the update, along with
// whether it is an edit. Exactly one variant is set on a well-formed update.
func (u *Update) Content() (msg *Message, edited bool) {
	switch {
	case u.Message != nil:
		return u.Message, false
	case u.ChannelPost != nil:
		return u.ChannelPost, false
	case u.EditedMessage != nil:
		return u.EditedMessage, true
	case u.EditedChannelPost != nil:
		return u.EditedChannelPost, true
	}
	return nil, false
}

type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

type Message struct {
	MessageID    int64        `json:"message_id"`
	Date         int64        `json:"date"`
	Chat         Chat         `json:"chat"`
	Text         string       `json:"text,omitempty"`
	Caption      string       `json:"caption,omitempty"`
	MediaGroupID string       `json:"media_group_id,omitempty"`
	Photo        []PhotoSize  `json:"photo,omitempty"`
	Video        *Video       `json:"video,omitempty"`
	Document     *Document    `json:"document,omitempty"`
	Audio        *Audio       `json:"audio,omitempty"`
	Voice        *Voice       `json:"voice,omitempty"`
	Animation    *Animation   `json:"animation,omitempty"`
	Sticker      *Sticker     `json:"sticker,omitempty"`
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Video struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mime_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	MimeType     string `json:"mime_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Audio struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mime_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Voice struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Duration     int    `json:"duration"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Animation struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	MimeType     string `json:"mime_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type Sticker struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Emoji        string `json:"emoji,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

// MediaDescriptor is the normalized view of whichever typed media field was
// present on the message.
type MediaDescriptor struct {
	Kind         MediaKind
	FileID       string
	FileUniqueID string
	MimeType     string
	FileName     string
	FileSize     int64
}

// Classify determines the media kind of a message. The first matching typed
// field wins; photos select the largest available size. Messages with only
// text classify as text with a nil descriptor, everything else as unknown.
func (m *Message) Classify() (MediaKind, *MediaDescriptor) {
	switch {
	case len(m.Photo) > 0:
		best := m.Photo[0]
		for _, p := range m.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return MediaKindPhoto, &MediaDescriptor{
			Kind:         MediaKindPhoto,
			FileID:       best.FileID,
			FileUniqueID: best.FileUniqueID,
			MimeType:     "image/jpeg",
			FileSize:     best.FileSize,
		}
	case m.Video != nil:
		return MediaKindVideo, &MediaDescriptor{
			Kind:         MediaKindVideo,
			FileID:       m.Video.FileID,
			FileUniqueID: m.Video.FileUniqueID,
			MimeType:     m.Video.MimeType,
			FileName:     m.Video.FileName,
			FileSize:     m.Video.FileSize,
		}
	case m.Document != nil:
		return MediaKindDocument, &MediaDescriptor{
			Kind:         MediaKindDocument,
			FileID:       m.Document.FileID,
			FileUniqueID: m.Document.FileUniqueID,
			MimeType:     m.Document.MimeType,
			FileName:     m.Document.FileName,
			FileSize:     m.Document.FileSize,
		}
	case m.Audio != nil:
		return MediaKindAudio, &MediaDescriptor{
			Kind:         MediaKindAudio,
			FileID:       m.Audio.FileID,
			FileUniqueID: m.Audio.FileUniqueID,
			MimeType:     m.Audio.MimeType,
			FileName:     m.Audio.FileName,
			FileSize:     m.Audio.FileSize,
		}
	case m.Voice != nil:
		return MediaKindVoice, &MediaDescriptor{
			Kind:         MediaKindVoice,
			FileID:       m.Voice.FileID,
			FileUniqueID: m.Voice.FileUniqueID,
			MimeType:     m.Voice.MimeType,
			FileSize:     m.Voice.FileSize,
		}
	case m.Animation != nil:
		return MediaKindAnimation, &MediaDescriptor{
			Kind:         MediaKindAnimation,
			FileID:       m.Animation.FileID,
			FileUniqueID: m.Animation.FileUniqueID,
			MimeType:     m.Animation.MimeType,
			FileName:     m.Animation.FileName,
			FileSize:     m.Animation.FileSize,
		}
	case m.Sticker != nil:
		return MediaKindSticker, &MediaDescriptor{
			Kind:         MediaKindSticker,
			FileID:       m.Sticker.FileID,
			FileUniqueID: m.Sticker.FileUniqueID,
			MimeType:     "image/webp",
			FileSize:     m.Sticker.FileSize,
		}
	case m.Text != "":
		return MediaKindText, nil
	}
	return MediaKindUnknown, nil
}
