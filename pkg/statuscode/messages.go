package statuscode

// messages localizes the advisory message attached to a progress event,
// grounded on the original system's sse_messages.py. The server's message
// field is advisory only; clients remain free to translate codes locally.
var messages = map[Code]map[string]string{
	Queued: {
		"zh": "任务已加入队列",
		"en": "Task queued",
		"ja": "タスクはキューに追加されました",
	},
	Initializing: {
		"zh": "正在初始化",
		"en": "Initializing",
		"ja": "初期化中",
	},
	CacheProbe: {
		"zh": "正在检查缓存",
		"en": "Checking cache",
		"ja": "キャッシュを確認しています",
	},
	RetrievingContext: {
		"zh": "正在检索签文内容",
		"en": "Retrieving poem context",
		"ja": "おみくじの文脈を取得しています",
	},
	BuildingPrompt: {
		"zh": "正在准备提示词",
		"en": "Building prompt",
		"ja": "プロンプトを作成しています",
	},
	CallingModel: {
		"zh": "正在请求模型解读",
		"en": "Requesting interpretation",
		"ja": "解釈をリクエストしています",
	},
	Heartbeat: {
		"zh": "仍在处理中",
		"en": "Still processing",
		"ja": "処理中です",
	},
	ValidatingOutput: {
		"zh": "正在校验结果",
		"en": "Validating result",
		"ja": "結果を検証しています",
	},
	Finalizing: {
		"zh": "正在整理结果",
		"en": "Finalizing",
		"ja": "結果をまとめています",
	},
	Completed: {
		"zh": "解读完成",
		"en": "Interpretation complete",
		"ja": "解釈が完了しました",
	},
	Failed: {
		"zh": "处理失败",
		"en": "Processing failed",
		"ja": "処理に失敗しました",
	},
	Cancelled: {
		"zh": "任务已取消",
		"en": "Task cancelled",
		"ja": "タスクがキャンセルされました",
	},
}

// Message returns the advisory message for code in language, falling back
// to English when the language is unknown, and "" for a code with no
// entry.
func Message(c Code, language string) string {
	byLang, ok := messages[c]
	if !ok {
		return ""
	}
	if msg, ok := byLang[language]; ok {
		return msg
	}
	return byLang["en"]
}

// HeartbeatPhrase returns a phase descriptor ("early"/"middle"/"late"/
// "overtime") for a heartbeat event, based on elapsed fraction of the
// rolling average duration for the operation in progress.
func HeartbeatPhrase(elapsedFraction float64, language string) string {
	var key string
	switch {
	case elapsedFraction < 0.33:
		key = "early"
	case elapsedFraction < 0.75:
		key = "middle"
	case elapsedFraction < 1.0:
		key = "late"
	default:
		key = "overtime"
	}
	phrases := map[string]map[string]string{
		"early": {"zh": "刚开始处理", "en": "just getting started", "ja": "開始直後です"},
		"middle": {
			"zh": "处理中", "en": "in progress", "ja": "処理中です",
		},
		"late": {"zh": "即将完成", "en": "almost there", "ja": "もうすぐ完了します"},
		"overtime": {
			"zh": "耗时超出预期，请耐心等待", "en": "taking longer than usual", "ja": "想定より時間がかかっています",
		},
	}
	byLang := phrases[key]
	if msg, ok := byLang[language]; ok {
		return msg
	}
	return byLang["en"]
}
